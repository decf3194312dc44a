package chatbot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"petit-panthere/pkg/panthere"
)

type relayStub struct {
	inputs []string
	rcs    []panthere.RelayContext
	reply  string
	err    error
	panic  bool
}

func (r *relayStub) Send(_ context.Context, text string, rc panthere.RelayContext) (panthere.Reply, error) {
	if r.panic {
		panic("relay exploded")
	}
	r.inputs = append(r.inputs, text)
	r.rcs = append(r.rcs, rc)
	if r.err != nil {
		return panthere.Reply{}, r.err
	}

	return panthere.Reply{Text: r.reply}, nil
}

type dispatcherStub struct {
	requests []panthere.SendMessageRequest
	err      error
}

func (d *dispatcherStub) SendMessage(_ context.Context, request panthere.SendMessageRequest) (*panthere.OutboundMessage, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.requests = append(d.requests, request)

	return &panthere.OutboundMessage{ID: "m1", Target: request.Target}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func directEvent(text string) *panthere.Event {
	return &panthere.Event{
		ID:           "ev-1",
		Platform:     panthere.PlatformSlack,
		Conversation: panthere.Conversation{ID: "D123", Type: panthere.ConversationTypePrivate},
		Actor:        panthere.Actor{ID: "U999"},
		Self:         panthere.Actor{ID: "UBOT", IsBot: true},
		Text:         text,
	}
}

func channelEvent(text string, mentions ...string) *panthere.Event {
	event := directEvent(text)
	event.Conversation = panthere.Conversation{ID: "C456", Type: panthere.ConversationTypeChannel}
	event.Mentions = mentions
	return event
}

func TestHandlerHandle(t *testing.T) {
	t.Parallel()

	botEvent := directEvent("beep")
	botEvent.Actor.IsBot = true

	selfEvent := directEvent("echo")
	selfEvent.Actor.ID = "UBOT"

	tests := []struct {
		name        string
		event       *panthere.Event
		relay       *relayStub
		dispatcher  *dispatcherStub
		wantInputs  []string
		wantPosted  []string
		wantErrText string
	}{
		{
			name:       "direct message relayed",
			event:      directEvent("Add task: film workout video"),
			relay:      &relayStub{reply: "🐾 Got it!"},
			wantInputs: []string{"Add task: film workout video"},
			wantPosted: []string{"🐾 Got it!"},
		},
		{
			name:       "channel mention relayed",
			event:      channelEvent("<@UBOT> what can you do?", "UBOT"),
			relay:      &relayStub{reply: "demo"},
			wantInputs: []string{"<@UBOT> what can you do?"},
			wantPosted: []string{"demo"},
		},
		{
			name:  "channel without mention ignored",
			event: channelEvent("just chatting", "UOTHER"),
			relay: &relayStub{reply: "nope"},
		},
		{
			name:  "bot author ignored",
			event: botEvent,
			relay: &relayStub{reply: "nope"},
		},
		{
			name:  "own message ignored",
			event: selfEvent,
			relay: &relayStub{reply: "nope"},
		},
		{
			name:  "blank text ignored",
			event: directEvent("   "),
			relay: &relayStub{reply: "nope"},
		},
		{
			name:       "model failure posts error reply",
			event:      directEvent("hello"),
			relay:      &relayStub{err: errors.New("upstream 500")},
			wantInputs: []string{"hello"},
			wantPosted: []string{ErrorReplyPrefix + "upstream 500"},
		},
		{
			name:       "empty reply not posted",
			event:      directEvent("hello"),
			relay:      &relayStub{reply: ""},
			wantInputs: []string{"hello"},
		},
		{
			name:        "delivery failure returned",
			event:       directEvent("hello"),
			relay:       &relayStub{reply: "hi"},
			dispatcher:  &dispatcherStub{err: errors.New("channel_not_found")},
			wantInputs:  []string{"hello"},
			wantErrText: "post reply: channel_not_found",
		},
		{
			name:        "invalid event rejected",
			event:       &panthere.Event{ID: "bad", Text: "hello"},
			relay:       &relayStub{reply: "hi"},
			wantErrText: "validate event",
		},
		{
			name:        "panic recovered",
			event:       directEvent("hello"),
			relay:       &relayStub{panic: true},
			wantErrText: "panic recovered: relay exploded",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			dispatcher := testCase.dispatcher
			if dispatcher == nil {
				dispatcher = &dispatcherStub{}
			}
			handler, err := New(testCase.relay, dispatcher, WithLogger(discardLogger()))
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}

			err = handler.Handle(context.Background(), testCase.event)
			if testCase.wantErrText != "" {
				if err == nil || !strings.Contains(err.Error(), testCase.wantErrText) {
					t.Fatalf("error = %v, want substring %q", err, testCase.wantErrText)
				}
			} else if err != nil {
				t.Fatalf("Handle failed: %v", err)
			}

			if len(testCase.relay.inputs) != len(testCase.wantInputs) {
				t.Fatalf("relay inputs = %q, want %q", testCase.relay.inputs, testCase.wantInputs)
			}
			for index, input := range testCase.wantInputs {
				if testCase.relay.inputs[index] != input {
					t.Fatalf("relay input[%d] = %q, want %q", index, testCase.relay.inputs[index], input)
				}
			}

			if len(dispatcher.requests) != len(testCase.wantPosted) {
				t.Fatalf("posted = %d messages, want %d", len(dispatcher.requests), len(testCase.wantPosted))
			}
			for index, text := range testCase.wantPosted {
				got := dispatcher.requests[index]
				if got.Text != text {
					t.Fatalf("posted[%d] = %q, want %q", index, got.Text, text)
				}
				if got.Target.Conversation.ID != testCase.event.Conversation.ID {
					t.Fatalf("posted[%d] conversation = %q, want %q", index, got.Target.Conversation.ID, testCase.event.Conversation.ID)
				}
			}
		})
	}
}

func TestHandlerPassesRelayContext(t *testing.T) {
	t.Parallel()

	relay := &relayStub{reply: "ok"}
	handler, err := New(relay, &dispatcherStub{}, WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := handler.Handle(context.Background(), directEvent("hi")); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	rc := relay.rcs[0]
	if rc.SenderID != "U999" || rc.ConversationID != "D123" || rc.SessionID != "" {
		t.Fatalf("relay context = %+v", rc)
	}
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, &dispatcherStub{}); err == nil {
		t.Fatal("expected nil relay error")
	}
	if _, err := New(&relayStub{}, nil); err == nil {
		t.Fatal("expected nil dispatcher error")
	}
}
