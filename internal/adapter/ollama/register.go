package ollama

import "github.com/Strob0t/ReplyForge/internal/port/llm"

func init() {
	llm.Register(providerName, func(config map[string]string) (llm.Provider, error) {
		return New(config[llm.ConfigBaseURL], config[llm.ConfigModel], nil), nil
	})
}
