package bot

import (
	"fmt"
	"strings"

	"github.com/omamori-dev/omamori-linebot-go/internal/config"
)

// PostbackSplitChar separates the action and parameters in postback data.
const PostbackSplitChar = "$"

// BuildPostback joins prefix, action and params into postback data.
// It returns an error when the result exceeds the LINE limit or a parameter
// contains the separator.
func BuildPostback(prefix, action string, params ...string) (string, error) {
	for _, p := range params {
		if strings.Contains(p, PostbackSplitChar) {
			return "", fmt.Errorf("postback param %q contains %q", p, PostbackSplitChar)
		}
	}
	data := prefix + strings.Join(append([]string{action}, params...), PostbackSplitChar)
	if len(data) > config.LINEMaxPostbackDataLength {
		return "", fmt.Errorf("postback data is %d bytes, limit %d", len(data), config.LINEMaxPostbackDataLength)
	}
	return data, nil
}

// SplitPostback splits prefix-less postback data into action and params.
func SplitPostback(data string) (string, []string) {
	parts := strings.Split(data, PostbackSplitChar)
	return parts[0], parts[1:]
}
