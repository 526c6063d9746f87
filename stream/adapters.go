package stream

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/hupe1980/statefx/core"
)

// Just returns a cold stream that synchronously delivers the given values to
// each subscriber followed by completion.
func Just(values ...any) core.Stream {
	return justStream{values: values}
}

type justStream struct {
	values []any
}

func (j justStream) Subscribe(sub core.Subscriber) core.Subscription {
	for _, v := range j.values {
		if sub.Next != nil {
			sub.Next(v)
		}
	}
	if sub.Complete != nil {
		sub.Complete()
	}
	return ClosedSubscription()
}

// Completed returns a cold stream that completes immediately on subscribe
// without emitting.
func Completed() core.Stream {
	return justStream{}
}

// Never returns a stream that never emits and never terminates. Subscribers
// receive nothing; unsubscribing is the only way out.
func Never() core.Stream {
	return neverStream{}
}

type neverStream struct{}

func (neverStream) Subscribe(core.Subscriber) core.Subscription {
	return &memberSub{}
}

// FromChannel adapts a Go channel into a Source. A pump goroutine drains the
// channel and forwards each element; closing the channel completes the
// source. The returned teardown stops the pump without waiting for channel
// close and must be registered with the owning scope to avoid a leaked
// goroutine when the source is abandoned first.
//
// ch must be a channel value that permits receiving; any element type is
// accepted.
func FromChannel(ch any) (*Source, core.TeardownFunc, error) {
	cv := reflect.ValueOf(ch)
	if !cv.IsValid() || cv.Kind() != reflect.Chan {
		return nil, nil, fmt.Errorf("stream: cannot adapt %T into a channel source", ch)
	}
	if cv.Type().ChanDir()&reflect.RecvDir == 0 {
		return nil, nil, fmt.Errorf("stream: channel %s is send-only", cv.Type())
	}

	src := NewSource()
	stop := make(chan struct{})

	go func() {
		cases := []reflect.SelectCase{
			{Dir: reflect.SelectRecv, Chan: cv},
			{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(stop)},
		}
		for {
			chosen, v, ok := reflect.Select(cases)
			if chosen == 1 {
				return
			}
			if !ok {
				src.Complete()
				return
			}
			src.Next(v.Interface())
		}
	}()

	var once sync.Once
	teardown := func() {
		once.Do(func() { close(stop) })
	}
	return src, teardown, nil
}
