package command

import "context"

// FakeRunner is a scripted Execer for unit-testing callers (the Step
// Dispatcher, Workflow Engine, Error-Recovery Manager) without spawning real
// processes, mirroring the teacher's FakeCommandRunner pattern.
type FakeRunner struct {
	// Responses maps a command string to the Result it should produce. A
	// missing entry falls back to Default.
	Responses map[string]Result
	Default   Result
	// Calls records every Request passed to Run, in order.
	Calls []Request
}

var _ Execer = (*FakeRunner)(nil)

func (f *FakeRunner) Run(_ context.Context, req Request) (Result, error) {
	f.Calls = append(f.Calls, req)
	res, ok := f.Responses[req.Command]
	if !ok {
		res = f.Default
	}
	if !res.Success && res.ErrMessage != "" {
		return res, New(res)
	}
	return res, nil
}

// New turns a failed Result back into an error, for callers that want both.
func New(res Result) error {
	if res.Success {
		return nil
	}
	return &fakeErr{res}
}

type fakeErr struct{ res Result }

func (e *fakeErr) Error() string { return e.res.ErrMessage }
