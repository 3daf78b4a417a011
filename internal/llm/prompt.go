package llm

import "fmt"

// SystemPrompt defines the toxicity analysis task for every generative provider
const SystemPrompt = `You are a content moderation analyzer. Analyze the given text for toxicity.
Return a JSON object with exactly these fields:
- "toxic": boolean, true if the text should be hidden from the recipient
- "score": number between 0 and 1, how toxic the text is
- "category": one of "clean", "harassment", "hate_speech", "threat", "sarcasm", "spam"
- "reason": short explanation in one sentence

Only return valid JSON, no markdown and no extra text.`

// BuildPrompt wraps the text to analyze in the user turn
func BuildPrompt(text string) string {
	return fmt.Sprintf("Analyze this text:\n%q", text)
}
