// Package messages renders the plain-text notices sent for reservation lifecycle events.
package messages

import (
	"fmt"
	"strings"

	"github.com/tavolo/tavolo/libs/events"
)

type Audience string

const (
	AudienceGuest Audience = "guest"
	AudienceStaff Audience = "staff"
)

// Message is one notice for one audience. SMS is the short form for text delivery.
type Message struct {
	Audience Audience
	Subject  string
	Body     string
	SMS      string
}

// Render returns the notices for an event, guest first. An unknown event type or a status
// that does not match its event renders nothing.
func Render(restaurant, eventType string, evt events.Reservation) []Message {
	when := fmt.Sprintf("%s, %s-%s", evt.Date, evt.StartTime, evt.EndTime)
	party := fmt.Sprintf("%d %s", evt.Guests, plural(evt.Guests, "guest", "guests"))

	switch {
	case eventType == events.TopicReservationCreated && evt.Status == "confirmed":
		return []Message{guest(restaurant, "Your table is confirmed", evt,
			fmt.Sprintf("Your reservation for %s on %s is confirmed.", party, when),
			fmt.Sprintf("%s: table for %s confirmed, %s.", restaurant, party, when),
		)}

	case eventType == events.TopicReservationCreated && evt.Status == "pending":
		return []Message{
			guest(restaurant, "We received your reservation request", evt,
				fmt.Sprintf("We received your request for %s on %s. Parties of this size are reviewed by our staff; we will write again once it is approved.", party, when),
				fmt.Sprintf("%s: request for %s on %s received, pending review.", restaurant, party, when),
			),
			{
				Audience: AudienceStaff,
				Subject:  fmt.Sprintf("[%s] Reservation awaiting review: %s, %s", restaurant, evt.Name, when),
				Body:     staffBody(evt, party, when),
			},
		}

	case eventType == events.TopicReservationConfirmed:
		return []Message{guest(restaurant, "Your reservation was approved", evt,
			fmt.Sprintf("Good news: your reservation for %s on %s has been approved.", party, when),
			fmt.Sprintf("%s: reservation for %s on %s approved.", restaurant, party, when),
		)}

	case eventType == events.TopicReservationCancelled:
		return []Message{guest(restaurant, "About your reservation request", evt,
			fmt.Sprintf("We are sorry, we cannot accommodate %s on %s. Please try another time.", party, when),
			fmt.Sprintf("%s: sorry, we cannot seat %s on %s.", restaurant, party, when),
		)}
	}
	return nil
}

func guest(restaurant, subject string, evt events.Reservation, line, sms string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n%s\n", evt.Name, line)
	if evt.SpecialRequests != "" {
		fmt.Fprintf(&b, "\nYour notes: %s\n", evt.SpecialRequests)
	}
	fmt.Fprintf(&b, "\nReference: %s\n\n%s", evt.ReservationID, restaurant)
	return Message{
		Audience: AudienceGuest,
		Subject:  fmt.Sprintf("[%s] %s", restaurant, subject),
		Body:     b.String(),
		SMS:      sms,
	}
}

func staffBody(evt events.Reservation, party, when string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A reservation needs review.\n\n")
	fmt.Fprintf(&b, "Guest: %s\nEmail: %s\n", evt.Name, evt.Email)
	if evt.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", evt.Phone)
	}
	fmt.Fprintf(&b, "Party: %s\nWhen: %s\n", party, when)
	if evt.SpecialRequests != "" {
		fmt.Fprintf(&b, "Notes: %s\n", evt.SpecialRequests)
	}
	fmt.Fprintf(&b, "Reference: %s\n", evt.ReservationID)
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
