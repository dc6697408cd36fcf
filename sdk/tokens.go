package sdk

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	openai "github.com/sashabaranov/go-openai"
)

// messageOverhead approximates the per-message framing tokens the chat
// format adds on top of the content itself.
const messageOverhead = 4

// EstimateMessageTokens estimates the prompt tokens a chat request will
// consume, for pre-flight simulation before any money is spent. Falls
// back to the cl100k_base encoding for models tiktoken does not know.
func EstimateMessageTokens(model string, messages []openai.ChatCompletionMessage) (int, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0, fmt.Errorf("failed to load token encoding: %w", err)
		}
	}

	total := 0
	for _, msg := range messages {
		total += len(enc.Encode(msg.Content, nil, nil)) + messageOverhead
	}
	return total, nil
}
