// Package tokens approximates the size of a conversation without a tokenizer.
package tokens

import (
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/dskvich/local-chat-relay/pkg/domain"
)

// CharsPerToken is the heuristic ratio used by Estimate.
const CharsPerToken = 4

// Estimate approximates the token count of messages as the number of content
// characters divided by CharsPerToken. It is not a tokenizer and will not
// match any model's real count.
func Estimate(messages []domain.Message) int {
	chars := lo.SumBy(messages, func(m domain.Message) int {
		return utf8.RuneCountInString(m.Content)
	})
	return chars / CharsPerToken
}
