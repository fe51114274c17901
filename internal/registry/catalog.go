package registry

import "github.com/nulzo/ai-bridge/pkg/api"

// Static catalogs. These are constant for the process lifetime; only the
// litellm partition is discovered at runtime.

var OpenAIModels = []api.Model{
	{
		ID:          "gpt-4o",
		Name:        "GPT-4o",
		Provider:    api.OpenAI,
		Description: "Most capable model for complex tasks",
		MaxTokens:   128000,
	},
	{
		ID:          "gpt-4-turbo",
		Name:        "GPT-4 Turbo",
		Provider:    api.OpenAI,
		Description: "Optimized version of GPT-4",
		MaxTokens:   128000,
	},
	{
		ID:          "gpt-3.5-turbo",
		Name:        "GPT-3.5 Turbo",
		Provider:    api.OpenAI,
		Description: "Fast and efficient for most tasks",
		MaxTokens:   16385,
	},
}

var DeepSeekModels = []api.Model{
	{
		ID:          "deepseek-chat",
		Name:        "DeepSeek Chat",
		Provider:    api.DeepSeek,
		Description: "General purpose chat model",
		MaxTokens:   32768,
	},
	{
		ID:          "deepseek-coder",
		Name:        "DeepSeek Coder",
		Provider:    api.DeepSeek,
		Description: "Specialized for coding tasks",
		MaxTokens:   32768,
	},
}

var CompatibleModels = []api.Model{
	{
		ID:          "llama3.3-70b-instruct",
		Name:        "Llama 3",
		Provider:    api.OpenAICompatible,
		Description: "Meta's Llama 3 model via OpenAI-compatible API",
		MaxTokens:   30000,
	},
	{
		ID:          "deepseek-v3",
		Name:        "DeepSeek-V3",
		Provider:    api.OpenAICompatible,
		Description: "DeepSeek V3 model via OpenAI-compatible API",
		MaxTokens:   57344,
	},
	{
		ID:          "qwen-max",
		Name:        "通义千问-Max",
		Provider:    api.OpenAICompatible,
		Description: "通义千问-Max model via OpenAI-compatible API",
		MaxTokens:   30720,
	},
}
