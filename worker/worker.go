package worker

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skylenet/tafelrunde/callable"
	"github.com/skylenet/tafelrunde/internal/rusage"
	"github.com/skylenet/tafelrunde/payload"
	"github.com/skylenet/tafelrunde/plan"
)

// Execute runs body with binding in the current process and reports the
// outcome. Returned errors and panics of the body are captured in the payload.
func Execute(body callable.Callable, binding plan.Binding) *payload.Payload {
	args := body.Bind(binding.Map())

	// Collect stale allocations so they do not count towards the call.
	runtime.GC()
	debug.FreeOSMemory()

	pl := &payload.Payload{Status: payload.StatusSuccess}
	if u, err := rusage.Self(); err == nil {
		pl.BaselineRSS = u.MaxRSS
	}

	start := time.Now()
	end, exc := invoke(body, args)
	pl.ElapsedNS = int64(end.Sub(start))

	if exc != nil {
		pl.Status = payload.StatusException
		pl.Exception = exc
		pl.Locals = captureLocals(args)
	}
	return pl
}

func invoke(body callable.Callable, args *callable.Args) (end time.Time, exc *payload.Exception) {
	defer func() {
		if r := recover(); r != nil {
			end = time.Now()
			exc = fromPanic(r, debug.Stack())
		}
	}()

	err := body.Call(args)
	end = time.Now()
	if err != nil {
		return end, fromError(err, debug.Stack())
	}
	return end, nil
}

func fromPanic(r any, stack []byte) *payload.Exception {
	kind := payload.KindPanic
	if _, ok := r.(runtime.Error); ok {
		kind = payload.KindRuntime
	}
	msg := fmt.Sprint(r)
	return &payload.Exception{
		TypeName:  fmt.Sprintf("%T", r),
		Kind:      kind,
		Message:   msg,
		Traceback: fmt.Sprintf("panic: %s\n\n%s", msg, stack),
	}
}

func fromError(err error, stack []byte) *payload.Exception {
	var sb strings.Builder
	fmt.Fprintf(&sb, "error: %s\n", err)
	writeChain(&sb, err, 1)
	sb.WriteByte('\n')
	sb.Write(stack)

	return &payload.Exception{
		TypeName:  fmt.Sprintf("%T", err),
		Kind:      payload.KindError,
		Message:   err.Error(),
		Traceback: sb.String(),
	}
}

// writeChain lists the wrapped errors of err, one per line.
func writeChain(sb *strings.Builder, err error, depth int) {
	var next []error
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		if e := u.Unwrap(); e != nil {
			next = []error{e}
		}
	case interface{ Unwrap() []error }:
		next = u.Unwrap()
	}
	for _, e := range next {
		fmt.Fprintf(sb, "%scaused by %T: %s\n", strings.Repeat("  ", depth), e, e)
		writeChain(sb, e, depth+1)
	}
}

// captureLocals encodes every value visible to the body. A value that cannot
// be encoded degrades to text on its own.
func captureLocals(args *callable.Args) map[string]payload.Local {
	locals := make(map[string]payload.Local, args.Len())
	for _, l := range args.Locals() {
		locals[l.Name] = payload.EncodeLocal(l.Value)
	}
	return locals
}

// Serve runs the call named by target and writes its payload to out. It
// returns the exit code the worker process must terminate with.
func Serve(log logrus.FieldLogger, resolver Resolver, target Target, out io.Writer) int {
	log = log.WithFields(logrus.Fields{
		"component": "worker",
		"benchmark": target.Benchmark,
		"call":      target.Index,
		"run":       target.RunID,
	})

	body, binding, id, err := resolver.Resolve(target.Benchmark, target.Index)
	if err != nil {
		log.WithError(err).Error("Failed to resolve call")
		return payload.ExitProtocol
	}
	if target.Digest != "" {
		if d := binding.Digest(); d != target.Digest {
			log.WithError(fmt.Errorf("%w: planned %s, resolved %s", ErrBindingMismatch, target.Digest, d)).
				Error("Refusing to run call")
			return payload.ExitProtocol
		}
	}

	pl := Execute(body, binding)

	data, err := payload.NewParser(log).Encode(pl)
	if err != nil {
		log.WithError(err).Error("Failed to encode payload")
		return payload.ExitProtocol
	}
	if _, err := out.Write(data); err != nil {
		log.WithError(err).Error("Failed to write payload")
		return payload.ExitProtocol
	}

	log.WithFields(logrus.Fields{
		"id":      id,
		"status":  pl.Status,
		"elapsed": pl.Elapsed(),
	}).Debug("Call finished")

	return pl.ExitCode()
}

// Main serves the worker role and terminates the process when it was started
// as a worker. Otherwise it returns immediately.
func Main(log logrus.FieldLogger, resolver Resolver) {
	target, ok, err := TargetFromEnv(os.LookupEnv)
	if !ok {
		return
	}
	if err != nil {
		log.WithError(err).Error("Invalid worker environment")
		os.Exit(payload.ExitProtocol)
	}

	out := os.NewFile(PayloadFD, "payload")
	code := Serve(log, resolver, target, out)
	if err := out.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		log.WithError(err).Warn("Failed to close payload pipe")
	}
	os.Exit(code)
}
