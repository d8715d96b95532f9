// Package share builds the share text, network intents and summary card of a
// finished session.
package share

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/okian/showdown/internal/domain/model"
	"github.com/okian/showdown/internal/domain/scoring"
)

// Hashtag is appended to every share text.
const Hashtag = "#DailyShowdown"

// Intent endpoints of the supported networks.
const (
	xIntentURL        = "https://twitter.com/intent/tweet"
	facebookIntentURL = "https://www.facebook.com/sharer/sharer.php"
	redditIntentURL   = "https://www.reddit.com/submit"
)

// Card holds the inputs of the downloadable summary image.
type Card struct {
	WinnerID    model.FlexString `json:"winner_id"`
	WinnerName  string           `json:"winner_name"`
	Team        string           `json:"team"`
	Score       float64          `json:"score"`
	DeckAverage float64          `json:"deck_average"`
	Delta       float64          `json:"delta"`
	Stats       model.Stats      `json:"stats"`
	Date        string           `json:"date"`
}

// Links are the per-network share intents.
type Links struct {
	X        string `json:"x"`
	Facebook string `json:"facebook"`
	Reddit   string `json:"reddit"`
}

// Payload is what a share sheet or clipboard receives.
type Payload struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url,omitempty"`
	Links Links  `json:"links"`
	Card  Card   `json:"card"`
}

// NewCard assembles the summary card of winner.
func NewCard(winner model.Player, score, deckAverage float64, date string) Card {
	return Card{
		WinnerID:    winner.ID,
		WinnerName:  winner.Name,
		Team:        winner.Team,
		Score:       score,
		DeckAverage: deckAverage,
		Delta:       scoring.Delta(score, deckAverage),
		Stats:       winner.Stats,
		Date:        date,
	}
}

// Build returns the share payload for card. pageURL may be empty.
func Build(card Card, pageURL string) Payload {
	title := "My Player of the Day"
	if card.Date != "" {
		title += " for " + card.Date
	}
	text := fmt.Sprintf("My Player of the Day: %s (%s) with a Game Score of %s, %s vs the deck average of %s. %s",
		card.WinnerName, card.Team,
		formatScore(card.Score), formatDelta(card.Delta), formatScore(card.DeckAverage), Hashtag)

	return Payload{
		Title: title,
		Text:  text,
		URL:   pageURL,
		Links: Links{
			X:        intent(xIntentURL, url.Values{"text": {text}, "url": nonEmpty(pageURL)}),
			Facebook: intent(facebookIntentURL, url.Values{"u": nonEmpty(pageURL), "quote": {text}}),
			Reddit:   intent(redditIntentURL, url.Values{"title": {title}, "text": {text}, "url": nonEmpty(pageURL)}),
		},
		Card: card,
	}
}

func intent(base string, q url.Values) string {
	for k, v := range q {
		if len(v) == 0 {
			q.Del(k)
		}
	}
	return base + "?" + q.Encode()
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func formatDelta(v float64) string {
	if v >= 0 {
		return "+" + formatScore(v)
	}
	return formatScore(v)
}
