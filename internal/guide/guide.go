package guide

import (
	"fmt"
	"strings"
)

// Step represents one actionable item in the getting-started checklist.
type Step struct {
	Title       string
	Description string
}

// Metadata carries just enough context for personalizing the checklist.
type Metadata struct {
	Username string
}

// Build returns the onboarding checklist shown before the first session.
func Build(meta Metadata) []Step {
	greeting := "Welcome"
	if name := strings.TrimSpace(meta.Username); name != "" {
		greeting = fmt.Sprintf("Welcome, %s", name)
	}

	return []Step{
		{
			Title:       "Load a video",
			Description: fmt.Sprintf("%s! Paste a YouTube URL in the composer and press Enter. The backend reads the transcript and builds a knowledge base for the conversation.", greeting),
		},
		{
			Title:       "Ask about the content",
			Description: "Once the session is ready, type a question. Watch the thinking panel stream the retrieval and reasoning steps before the answer lands.",
		},
		{
			Title:       "Follow the suggestions",
			Description: "Answers may carry follow-up suggestions. Press the matching number key to send one without retyping.",
		},
		{
			Title:       "Explore related resources",
			Description: "The resources panel lists related videos and articles for the current topic. Switch sessions from the sidebar to pick up an earlier conversation with its full history.",
		},
	}
}
