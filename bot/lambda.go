package bot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/rs/zerolog/log"

	"github.com/domino14/gridwar/move"
)

// LambdaEvent is the payload of the move function. When ReplyChannel is
// set the response is also published there over NATS.
type LambdaEvent struct {
	Request
	ReplyChannel string `json:"replyChannel,omitempty"`
}

type lambdaInvoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput,
		optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaClient asks the deployed move function for moves.
type LambdaClient struct {
	api      lambdaInvoker
	function string
}

// NewLambdaClient uses the default AWS credential chain and region.
func NewLambdaClient(ctx context.Context, function string) (*LambdaClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return &LambdaClient{api: lambda.NewFromConfig(awsCfg), function: function}, nil
}

func (c *LambdaClient) RequestMove(ctx context.Context, req *Request) (*move.Move, error) {
	payload, err := json.Marshal(LambdaEvent{Request: *req})
	if err != nil {
		return nil, err
	}
	out, err := c.api.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(c.function),
		Payload:      payload,
	})
	if err != nil {
		return nil, err
	}
	if out.FunctionError != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrBotFailed, aws.ToString(out.FunctionError),
			string(out.Payload))
	}
	log.Debug().Str("function", c.function).Int32("status", out.StatusCode).Msg("lambda-invoked")
	return moveFromResponse(out.Payload)
}
