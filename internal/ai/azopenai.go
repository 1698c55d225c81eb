package ai

import (
	"context"
	"errors"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/cenkalti/backoff/v4"
)

// AzureClient is the Azure OpenAI-backed Collaborator, narrowed from the
// teacher's multi-purpose chat client to the spec's single generate
// operation.
type AzureClient struct {
	client       *azopenai.Client
	deploymentID string
	retry        backoff.BackOff
}

// NewAzureClient builds an AzureClient authenticated with an API key.
func NewAzureClient(endpoint, apiKey, deploymentID string) (*AzureClient, error) {
	cred := azcore.NewKeyCredential(apiKey)
	client, err := azopenai.NewClientWithKeyCredential(endpoint, cred, nil)
	if err != nil {
		return nil, unavailable(err)
	}
	return &AzureClient{
		client:       client,
		deploymentID: deploymentID,
		retry:        backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2),
	}, nil
}

var _ Collaborator = (*AzureClient)(nil)

// Generate implements Collaborator.
func (c *AzureClient) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	ctx, cancel := withCallTimeout(ctx)
	defer cancel()

	var out string
	op := func() error {
		resp, err := c.client.GetChatCompletions(ctx, azopenai.ChatCompletionsOptions{
			DeploymentName: to.Ptr(c.deploymentID),
			Messages: []azopenai.ChatRequestMessageClassification{
				&azopenai.ChatRequestUserMessage{
					Content: azopenai.NewChatRequestUserMessageContent(prompt),
				},
			},
			MaxTokens:   to.Ptr(int32(maxTokens)),
			Temperature: to.Ptr(float32(temperature)),
		}, nil)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Message == nil || resp.Choices[0].Message.Content == nil {
			return backoff.Permanent(errors.New("no completion returned"))
		}
		out = *resp.Choices[0].Message.Content
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(c.retry, ctx)); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return "", malformed(perm.Err)
		}
		return "", unavailable(err)
	}
	return out, nil
}
