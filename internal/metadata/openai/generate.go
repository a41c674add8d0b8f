package openai

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	ratingSystemPrompt = "You are a book critic. Rate books on a scale of 1.0 to 5.0 " +
		"considering literary quality, popularity, and reader reception. " +
		"Respond with only the numeric rating, nothing else."

	summarySystemPrompt = "You are a book recommender. Write a compelling two-sentence " +
		"summary of the book that captures its premise and appeal without spoilers. " +
		"Respond with only the summary."
)

var ratingPattern = regexp.MustCompile(`\d\.?\d?`)

// GenerateRating asks the model for a 1.0 to 5.0 rating, returned with one
// decimal place. Out-of-range or unparseable replies are errors, never
// clamped into fake data.
func (c *Client) GenerateRating(ctx context.Context, title, author string) (string, error) {
	prompt := fmt.Sprintf("Rate the book %q by %s.", title, author)
	reply, err := c.complete(ctx, ratingSystemPrompt, prompt, 10)
	if err != nil {
		return "", err
	}

	match := ratingPattern.FindString(reply)
	if match == "" {
		return "", fmt.Errorf("no rating in reply %q", reply)
	}
	rating, err := strconv.ParseFloat(match, 64)
	if err != nil || rating < 1.0 || rating > 5.0 {
		return "", fmt.Errorf("rating %q out of range", match)
	}

	c.logger.Debug("generated rating", "title", title, "rating", rating)
	return strconv.FormatFloat(rating, 'f', 1, 64), nil
}

// GenerateSummary asks the model for a short spoiler-free summary.
func (c *Client) GenerateSummary(ctx context.Context, title, author string) (string, error) {
	prompt := fmt.Sprintf("Summarize the book %q by %s.", title, author)
	reply, err := c.complete(ctx, summarySystemPrompt, prompt, 150)
	if err != nil {
		return "", err
	}

	summary := strings.TrimSpace(strings.Trim(strings.TrimSpace(reply), `"`))
	if summary == "" {
		return "", fmt.Errorf("empty summary reply")
	}

	c.logger.Debug("generated summary", "title", title, "length", len(summary))
	return summary, nil
}
