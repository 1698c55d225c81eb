package ai

import "context"

// FakeCollaborator is a scripted Collaborator for tests.
type FakeCollaborator struct {
	Response string
	Err      error
	Prompts  []string
}

var _ Collaborator = (*FakeCollaborator)(nil)

func (f *FakeCollaborator) Generate(_ context.Context, prompt string, _ int, _ float64) (string, error) {
	f.Prompts = append(f.Prompts, prompt)
	if f.Err != nil {
		return "", f.Err
	}
	return f.Response, nil
}
