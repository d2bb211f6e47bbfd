package agents

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
)

// Category is the class of an agent failure.
type Category string

// Failure categories, in matching priority.
const (
	CategoryAuthorization Category = "authorization"
	CategoryQuota         Category = "quota"
	CategorySafety        Category = "safety"
	CategoryNetwork       Category = "network"
	CategoryInternal      Category = "internal"
	CategoryUnknown       Category = "unknown"
)

// Diagnosis is a user-facing explanation of a failure.
type Diagnosis struct {
	Category        Category `json:"category"`
	Message         string   `json:"message"`
	Troubleshooting []string `json:"troubleshooting"`
}

var diagnoses = map[Category]Diagnosis{
	CategoryAuthorization: {
		Category: CategoryAuthorization,
		Message:  "Authorization failed. The API key provided might be invalid or has expired.",
		Troubleshooting: []string{
			"Verify that the GEMINI_API_KEY environment variable is set correctly.",
			"Ensure the API key has access to Generative AI services.",
			"Check if the API key has billing enabled if required.",
		},
	},
	CategoryQuota: {
		Category: CategoryQuota,
		Message:  "Usage limit exceeded. The API quota has been reached.",
		Troubleshooting: []string{
			"Wait for a few minutes before trying again (rate limit).",
			"Check your Google Cloud console for quota usage limits.",
			"Consider using a different API key if available.",
		},
	},
	CategorySafety: {
		Category: CategorySafety,
		Message:  "The request was blocked due to safety settings.",
		Troubleshooting: []string{
			"Try rephrasing your input to be more neutral.",
			"Ensure the company name and job role are appropriate.",
			"Avoid sensitive or controversial topics in the input.",
		},
	},
	CategoryNetwork: {
		Category: CategoryNetwork,
		Message:  "Network connection issue detected.",
		Troubleshooting: []string{
			"Check your internet connection.",
			"Check if a firewall, VPN, or proxy is blocking the request.",
			"Retry the agent in a moment.",
		},
	},
	CategoryInternal: {
		Category: CategoryInternal,
		Message:  "Google AI service is experiencing internal issues.",
		Troubleshooting: []string{
			"This is likely a temporary issue on Google's end.",
			"Wait a few minutes and try again.",
		},
	},
	CategoryUnknown: {
		Category: CategoryUnknown,
		Message:  "An unexpected error occurred while running the agent.",
		Troubleshooting: []string{
			"Check your internet connection.",
			"Try running the agent again in a few moments.",
		},
	},
}

// errClientUnavailable marks invocations made without a configured model client.
var errClientUnavailable = errors.New("GEMINI_API_KEY environment variable is not set")

var clientUnavailableHints = []string{"Ensure GEMINI_API_KEY is set in your environment variables."}

var patterns = []struct {
	category Category
	needles  []string
}{
	{CategoryAuthorization, []string{"403", "api key", "permission denied"}},
	{CategoryQuota, []string{"429", "quota", "exhausted", "limit"}},
	{CategorySafety, []string{"safety", "blocked"}},
	{CategoryNetwork, []string{"fetch", "network", "connection"}},
	{CategoryInternal, []string{"500", "internal"}},
}

// Classify maps err to a Diagnosis. Typed errors are checked first, then the
// lowercased error text is matched against each category's patterns in order.
func Classify(err error) Diagnosis {
	if err == nil {
		return lookup(CategoryUnknown)
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return lookup(CategorySafety)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return lookup(CategoryAuthorization)
		case apiErr.Code == http.StatusTooManyRequests:
			return lookup(CategoryQuota)
		case apiErr.Code >= http.StatusInternalServerError:
			return lookup(CategoryInternal)
		}
	}

	text := strings.ToLower(err.Error())
	for _, p := range patterns {
		for _, needle := range p.needles {
			if strings.Contains(text, needle) {
				return lookup(p.category)
			}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return lookup(CategoryNetwork)
	}
	return lookup(CategoryUnknown)
}

func lookup(c Category) Diagnosis {
	d := diagnoses[c]
	hints := make([]string, len(d.Troubleshooting))
	copy(hints, d.Troubleshooting)
	d.Troubleshooting = hints
	return d
}
