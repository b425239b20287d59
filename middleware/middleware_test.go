package middleware

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"async-rpc/client"
	"async-rpc/codec"
)

// recorder stands in for the engine: it keeps every call it is given and,
// when complete is set, delivers that result to the call's callback at once.
type recorder struct {
	calls    []*client.Call
	complete *client.Result
}

func (r *recorder) Submit(c *client.Call) error {
	r.calls = append(r.calls, c)
	if r.complete != nil {
		res := *r.complete
		res.Method, res.SeqID = c.Method(), c.SeqID()
		c.WrapCallback(func(next client.Callback) client.Callback {
			if next != nil {
				next(res)
			}
			return next
		})
	}
	return nil
}

func newHandle(t *testing.T, s client.Submitter) *client.Handle {
	t.Helper()
	h, err := client.NewHandle(s, "127.0.0.1:9", nil)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func args() *codec.Struct {
	return &codec.Struct{Fields: []codec.Field{{ID: 1, Value: codec.I32(1)}}}
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next SubmitFunc) SubmitFunc {
			return func(c *client.Call) error {
				order = append(order, name+".before")
				err := next(c)
				order = append(order, name+".after")
				return err
			}
		}
	}
	rec := &recorder{}
	h := newHandle(t, Wrap(rec, tag("A"), tag("B"), tag("C")))
	if err := h.Call("m", args(), nil, nil); err != nil {
		t.Fatal(err)
	}

	want := []string{"A.before", "B.before", "C.before", "C.after", "B.after", "A.after"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if len(rec.calls) != 1 || rec.calls[0].Method() != "m" {
		t.Fatalf("submitter saw %d calls", len(rec.calls))
	}
}

func TestChainEmpty(t *testing.T) {
	rec := &recorder{}
	h := newHandle(t, Wrap(rec))
	if err := h.Call("m", args(), nil, nil); err != nil {
		t.Fatal(err)
	}
	if len(rec.calls) != 1 {
		t.Fatalf("submitter saw %d calls, want 1", len(rec.calls))
	}
}

func TestRejectionLeavesHandleIdle(t *testing.T) {
	errNope := errors.New("nope")
	reject := func(next SubmitFunc) SubmitFunc {
		return func(c *client.Call) error { return errNope }
	}
	rec := &recorder{}
	h := newHandle(t, Wrap(rec, reject))
	if err := h.Call("m", args(), nil, nil); !errors.Is(err, errNope) {
		t.Fatalf("expect the middleware error, got %v", err)
	}
	if len(rec.calls) != 0 {
		t.Fatal("a rejected call reached the submitter")
	}
	if err := h.CheckIdle(); err != nil {
		t.Fatalf("CheckIdle after rejection: %v", err)
	}
}

func TestDefaultTimeout(t *testing.T) {
	rec := &recorder{}
	s := Wrap(rec, DefaultTimeout(250*time.Millisecond))

	h := newHandle(t, s)
	h.Call("m", args(), nil, nil)
	if got := rec.calls[0].Timeout(); got != 250*time.Millisecond {
		t.Fatalf("timeout = %v, want 250ms", got)
	}
	if _, ok := rec.calls[0].Deadline(); !ok {
		t.Fatal("expect a deadline to be set")
	}

	// An explicit handle timeout wins.
	h2 := newHandle(t, s)
	h2.SetTimeout(time.Second)
	h2.Call("m", args(), nil, nil)
	if got := rec.calls[1].Timeout(); got != time.Second {
		t.Fatalf("timeout = %v, want 1s", got)
	}
}

func TestRateLimit(t *testing.T) {
	rec := &recorder{}
	s := Wrap(rec, RateLimit(1, 2))

	for i := 0; i < 2; i++ {
		if err := newHandle(t, s).Call("m", args(), nil, nil); err != nil {
			t.Fatalf("call %d within burst rejected: %v", i, err)
		}
	}
	h := newHandle(t, s)
	if err := h.Call("m", args(), nil, nil); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expect ErrRateLimited, got %v", err)
	}
	if err := h.CheckIdle(); err != nil {
		t.Fatalf("a rate limited call must leave the handle idle: %v", err)
	}
	if len(rec.calls) != 2 {
		t.Fatalf("submitter saw %d calls, want 2", len(rec.calls))
	}
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	rec := &recorder{complete: &client.Result{Elapsed: time.Millisecond}}
	h := newHandle(t, Wrap(rec, Logging(zap.New(core))))

	var got client.Result
	if err := h.Call("ok", args(), nil, func(r client.Result) { got = r }); err != nil {
		t.Fatal(err)
	}
	if got.Method != "ok" {
		t.Fatalf("callback not invoked through the logging wrapper: %+v", got)
	}
	entries := logs.FilterMessage("call completed").All()
	if len(entries) != 1 || entries[0].Level != zapcore.DebugLevel {
		t.Fatalf("expect one debug completion entry, got %v", logs.All())
	}
	if entries[0].ContextMap()["method"] != "ok" {
		t.Fatalf("entry fields = %v", entries[0].ContextMap())
	}
}

func TestLoggingFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	rec := &recorder{complete: &client.Result{Err: &client.TimeoutError{Method: "slow", SeqID: 1}}}
	h := newHandle(t, Wrap(rec, Logging(zap.New(core))))

	h.Call("slow", args(), nil, nil)
	entries := logs.FilterMessage("call failed").All()
	if len(entries) != 1 || entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expect one warn failure entry, got %v", logs.All())
	}
	if entries[0].ContextMap()["class"] != "timeout" {
		t.Fatalf("entry fields = %v", entries[0].ContextMap())
	}
}

func TestLoggingRejectedSubmit(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := newHandle(t, Wrap(&recorder{}, Logging(zap.New(core)), RateLimit(0, 0)))

	if err := h.Call("m", args(), nil, nil); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expect ErrRateLimited, got %v", err)
	}
	if logs.FilterMessage("submit rejected").Len() != 1 {
		t.Fatalf("expect a rejection entry, got %v", logs.All())
	}
}
