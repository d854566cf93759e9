package useapi

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vebgen/accesskit/pkg/accesspoint"
	"github.com/vebgen/accesskit/pkg/apierr"
)

func TestReduce_LoadingThenResult(t *testing.T) {
	s := Reduce(State[string]{}, Loading{Value: true})
	assert.True(t, s.Loading)
	assert.True(t, s.AutoTriggerGuard)

	s = Reduce(s, SetResult[string]{Value: "v"})
	require.NotNil(t, s.Result)
	assert.Equal(t, "v", *s.Result)
	assert.Nil(t, s.Error)
	assert.False(t, s.Loading)
	assert.True(t, s.Called)

	assert.Equal(t, State[string]{}, Reduce(s, Reset{}))
}

func TestReduce_ErrorKeepsResult(t *testing.T) {
	s := Reduce(State[int]{}, SetResult[int]{Value: 1})
	s = Reduce(s, Loading{Value: true})
	s = Reduce(s, SetError{Err: apierr.Comm()})

	require.NotNil(t, s.Result)
	assert.Equal(t, 1, *s.Result)
	assert.Equal(t, apierr.Comm(), s.Error)
	assert.False(t, s.Loading)

	s = Reduce(s, SetResult[int]{Value: 2})
	assert.Nil(t, s.Error, "success clears the error")
}

func TestReduce_ForeignActionIsNoop(t *testing.T) {
	s := Reduce(State[int]{}, Loading{Value: true})
	assert.Equal(t, s, Reduce(s, SetResult[string]{Value: "x"}))
}

// fakeInvoker answers calls from a queue and records requests.
type fakeInvoker struct {
	mu       sync.Mutex
	contexts []string
	requests []accesspoint.Request[int]
	answers  []func() (string, error)
}

func (f *fakeInvoker) Call(_ context.Context, c string, req accesspoint.Request[int]) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contexts = append(f.contexts, c)
	f.requests = append(f.requests, req)
	next := f.answers[0]
	f.answers = f.answers[1:]
	return next()
}

func ok(v string) func() (string, error) { return func() (string, error) { return v, nil } }

func fail(err error) func() (string, error) { return func() (string, error) { return "", err } }

func TestCaller_TriggerResultAndError(t *testing.T) {
	inv := &fakeInvoker{answers: []func() (string, error){ok("first"), fail(apierr.Unknown(500))}}
	c := NewCaller[string, int, string](inv, Defaults[string, int]{Context: "default"})

	var seen []State[string]
	cancel := c.Subscribe(func(s State[string]) { seen = append(seen, s) })
	defer cancel()

	got, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	_, err = c.Refresh(context.Background())
	assert.True(t, apierr.HasCode(err, apierr.CodeUnknown))

	s := c.State()
	assert.Equal(t, "first", *s.Result)
	assert.Equal(t, apierr.Unknown(500), s.Error)
	assert.True(t, s.Called)
	assert.False(t, s.Loading)

	require.Len(t, seen, 4)
	assert.True(t, seen[0].Loading)
	assert.True(t, seen[2].Loading)
}

func TestCaller_Overrides(t *testing.T) {
	inv := &fakeInvoker{answers: []func() (string, error){ok("a"), ok("b")}}
	payload := 1
	c := NewCaller[string, int, string](inv, Defaults[string, int]{
		Context:  "default",
		Payload:  &payload,
		PathArgs: accesspoint.PathArgs{"id": 1},
		Headers:  map[string]string{"X": "d"},
		Timeout:  accesspoint.NoTimeout,
	})

	ctxOverride, payloadOverride := "other", 2
	_, err := c.Trigger(context.Background(), Overrides[string, int]{
		Context:  &ctxOverride,
		Payload:  &payloadOverride,
		PathArgs: accesspoint.PathArgs{"id": 2},
	})
	require.NoError(t, err)
	_, err = c.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"other", "default"}, inv.contexts)
	assert.Equal(t, 2, *inv.requests[0].Payload)
	assert.Equal(t, accesspoint.PathArgs{"id": 2}, inv.requests[0].PathArgs)
	assert.Equal(t, map[string]string{"X": "d"}, inv.requests[0].Headers)
	assert.Equal(t, accesspoint.NoTimeout, inv.requests[0].Timeout)
	assert.Equal(t, 1, *inv.requests[1].Payload)
}

func TestCaller_ConfigErrorNotRecorded(t *testing.T) {
	inv := &fakeInvoker{answers: []func() (string, error){fail(apierr.ErrMissingParam)}}
	c := NewCaller[string, int, string](inv, Defaults[string, int]{})

	_, err := c.Refresh(context.Background())
	require.True(t, errors.Is(err, apierr.ErrMissingParam))

	s := c.State()
	assert.False(t, s.Loading)
	assert.False(t, s.Called)
	assert.Nil(t, s.Error)
}

func TestCaller_EvaluateFiresOnce(t *testing.T) {
	inv := &fakeInvoker{answers: []func() (string, error){ok("auto"), ok("again")}}
	c := NewCaller[string, int, string](inv, Defaults[string, int]{AutoTrigger: true})

	assert.True(t, c.Evaluate(context.Background()))
	assert.False(t, c.Evaluate(context.Background()))
	assert.Len(t, inv.contexts, 1)
	assert.Equal(t, "auto", *c.State().Result)

	c.Reset()
	assert.Equal(t, State[string]{}, c.State())
	assert.True(t, c.Evaluate(context.Background()), "reset re-arms the auto trigger")
}

func TestCaller_EvaluateWithoutAutoTrigger(t *testing.T) {
	c := NewCaller[string, int, string](&fakeInvoker{}, Defaults[string, int]{})
	assert.False(t, c.Evaluate(context.Background()))
	assert.False(t, c.State().AutoTriggerGuard)
}

func TestCaller_EvaluateConcurrent(t *testing.T) {
	inv := &fakeInvoker{answers: []func() (string, error){ok("x")}}
	c := NewCaller[string, int, string](inv, Defaults[string, int]{AutoTrigger: true})

	var wg sync.WaitGroup
	fired := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fired <- c.Evaluate(context.Background())
		}()
	}
	wg.Wait()
	close(fired)

	n := 0
	for f := range fired {
		if f {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestCaller_Unsubscribe(t *testing.T) {
	inv := &fakeInvoker{answers: []func() (string, error){ok("x")}}
	c := NewCaller[string, int, string](inv, Defaults[string, int]{})
	calls := 0
	cancel := c.Subscribe(func(State[string]) { calls++ })
	cancel()
	_, _ = c.Refresh(context.Background())
	assert.Zero(t, calls)
}

func TestForm_SubmitSuccess(t *testing.T) {
	inv := &fakeInvoker{answers: []func() (string, error){ok("saved")}}
	c := NewCaller[string, int, string](inv, Defaults[string, int]{Context: "default"})
	ctxValue := "editor"

	var got string
	f := Form[string, int, string]{
		Caller:    c,
		Context:   &ctxValue,
		OnSuccess: func(r string) FieldErrors { got = r; return nil },
	}
	errs, err := f.Submit(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Equal(t, "saved", got)
	assert.Equal(t, []string{"editor"}, inv.contexts)
	require.NotNil(t, inv.requests[0].Payload)
	assert.Equal(t, 7, *inv.requests[0].Payload)
}

func TestForm_SubmitErrors(t *testing.T) {
	inv := &fakeInvoker{answers: []func() (string, error){
		fail(apierr.Other(409, "name taken")),
		ok("saved"),
		fail(apierr.ErrMissingParam),
	}}
	c := NewCaller[string, int, string](inv, Defaults[string, int]{})
	f := Form[string, int, string]{Caller: c}

	errs, err := f.Submit(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, FieldErrors{FormError: "name taken"}, errs)

	f.OnSuccess = func(string) FieldErrors { return FieldErrors{"name": "rejected by server"} }
	errs, err = f.Submit(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, FieldErrors{"name": "rejected by server"}, errs)

	_, err = f.Submit(context.Background(), 1)
	assert.ErrorIs(t, err, apierr.ErrMissingParam)
}

func TestForm_ValidationSkipsCall(t *testing.T) {
	inv := &fakeInvoker{}
	f := Form[string, int, string]{
		Caller: NewCaller[string, int, string](inv, Defaults[string, int]{}),
		Validate: func(v int) FieldErrors {
			if v < 0 {
				return FieldErrors{"value": "must not be negative"}
			}
			return nil
		},
	}
	errs, err := f.Submit(context.Background(), -1)
	require.NoError(t, err)
	assert.Equal(t, FieldErrors{"value": "must not be negative"}, errs)
	assert.Empty(t, inv.requests)
}
