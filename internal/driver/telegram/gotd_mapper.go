package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode/utf16"

	"petit-panthere/pkg/panthere"

	"github.com/gotd/td/tg"
)

const gotdUnknownActorID = "unknown"

// GotdUpdateMapper maps gotd new-message updates into adapter updates.
//
// It records every peer it sees in the cache so replies can be addressed,
// and resolves @username mentions against the bot identity.
type GotdUpdateMapper struct {
	peers *PeerCache

	mu   sync.RWMutex
	self ActorRef
}

// NewGotdUpdateMapper creates a mapper that feeds peers into cache.
func NewGotdUpdateMapper(cache *PeerCache) *GotdUpdateMapper {
	return &GotdUpdateMapper{peers: cache}
}

// SetSelf records the authenticated bot identity.
func (m *GotdUpdateMapper) SetSelf(self ActorRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.self = self
}

func (m *GotdUpdateMapper) selfRef() ActorRef {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.self
}

// Map converts one envelope. The boolean is false for updates the relay ignores.
func (m *GotdUpdateMapper) Map(envelope gotdUpdateEnvelope) (Update, bool, error) {
	if envelope.update == nil {
		return Update{}, false, fmt.Errorf("map gotd update: nil update")
	}
	if m.peers != nil {
		m.peers.RememberEnvelope(envelope)
	}

	var raw tg.MessageClass
	switch update := envelope.update.(type) {
	case *tg.UpdateNewMessage:
		raw = update.Message
	case *tg.UpdateNewChannelMessage:
		raw = update.Message
	default:
		return Update{}, false, nil
	}

	message, ok := raw.(*tg.Message)
	if !ok || message == nil || message.Out {
		return Update{}, false, nil
	}

	return m.mapMessage(message, envelope), true, nil
}

func (m *GotdUpdateMapper) mapMessage(message *tg.Message, envelope gotdUpdateEnvelope) Update {
	chat := resolveChatFromPeer(message.PeerID, envelope)
	actor := resolveActorFromPeer(message.FromID, envelope)
	if actor.ID == gotdUnknownActorID {
		actor = resolveActorFromPeer(message.PeerID, envelope)
	}
	if m.peers != nil {
		m.peers.RememberConversation(chat, resolveInputPeerFromPeer(message.PeerID, envelope))
	}

	occurredAt := intToTimeUTC(message.Date)
	if occurredAt.IsZero() {
		occurredAt = envelope.occurredAt
	}
	messageID := strconv.Itoa(message.ID)
	self := m.selfRef()

	return Update{
		ID:         "tg:" + chat.ID + ":" + messageID,
		OccurredAt: occurredAt,
		Chat:       chat,
		Actor:      actor,
		Self:       self,
		MessageID:  messageID,
		Text:       message.Message,
		Mentions:   mapMentions(message.Message, message.Entities, self),
	}
}

// mapMentions extracts mentioned user ids. Telegram entity offsets count UTF-16 code units.
func mapMentions(text string, entities []tg.MessageEntityClass, self ActorRef) []string {
	if len(entities) == 0 {
		return nil
	}

	var units []uint16
	out := make([]string, 0, len(entities))
	for _, entity := range entities {
		switch typed := entity.(type) {
		case *tg.MessageEntityMentionName:
			out = append(out, strconv.FormatInt(typed.UserID, 10))
		case *tg.MessageEntityMention:
			if self.ID == "" || self.Username == "" {
				continue
			}
			if units == nil {
				units = utf16.Encode([]rune(text))
			}
			start, end := typed.Offset, typed.Offset+typed.Length
			if start < 0 || end > len(units) || start >= end {
				continue
			}
			handle := strings.TrimPrefix(string(utf16.Decode(units[start:end])), "@")
			if strings.EqualFold(handle, self.Username) {
				out = append(out, self.ID)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}

	return out
}

func resolveChatFromPeer(peer tg.PeerClass, envelope gotdUpdateEnvelope) ChatRef {
	switch typed := peer.(type) {
	case *tg.PeerUser:
		actor := resolveActorByUserID(typed.UserID, envelope)
		return ChatRef{
			ID:    actor.ID,
			Type:  panthere.ConversationTypePrivate,
			Title: actor.DisplayName,
		}
	case *tg.PeerChat:
		return resolveChatByID(typed.ChatID, panthere.ConversationTypeGroup, envelope)
	case *tg.PeerChannel:
		return resolveChatByID(typed.ChannelID, panthere.ConversationTypeChannel, envelope)
	default:
		return ChatRef{ID: gotdUnknownActorID, Type: panthere.ConversationTypePrivate}
	}
}

func resolveChatByID(id int64, fallback panthere.ConversationType, envelope gotdUpdateEnvelope) ChatRef {
	ref := ChatRef{ID: strconv.FormatInt(id, 10), Type: fallback}
	if info, ok := envelope.chatsByID[id]; ok {
		ref.Title = info.title
		ref.Type = info.kind
	}

	return ref
}

func resolveActorFromPeer(peer tg.PeerClass, envelope gotdUpdateEnvelope) ActorRef {
	switch typed := peer.(type) {
	case *tg.PeerUser:
		return resolveActorByUserID(typed.UserID, envelope)
	case *tg.PeerChat:
		return ActorRef{ID: strconv.FormatInt(typed.ChatID, 10)}
	case *tg.PeerChannel:
		return ActorRef{ID: strconv.FormatInt(typed.ChannelID, 10)}
	default:
		return ActorRef{ID: gotdUnknownActorID}
	}
}

func resolveActorByUserID(userID int64, envelope gotdUpdateEnvelope) ActorRef {
	if userID == 0 {
		return ActorRef{ID: gotdUnknownActorID}
	}
	id := strconv.FormatInt(userID, 10)

	user, ok := envelope.usersByID[userID]
	if !ok || user == nil {
		return ActorRef{ID: id}
	}

	return actorFromUser(user)
}

func actorFromUser(user *tg.User) ActorRef {
	id := strconv.FormatInt(user.ID, 10)
	username, _ := user.GetUsername()
	firstName, _ := user.GetFirstName()
	lastName, _ := user.GetLastName()

	displayName := strings.TrimSpace(firstName + " " + lastName)
	if displayName == "" {
		displayName = username
	}
	if displayName == "" {
		displayName = id
	}

	return ActorRef{
		ID:          id,
		Username:    username,
		DisplayName: displayName,
		IsBot:       user.Bot,
	}
}

func resolveInputPeerFromPeer(peer tg.PeerClass, envelope gotdUpdateEnvelope) tg.InputPeerClass {
	switch typed := peer.(type) {
	case *tg.PeerUser:
		user, ok := envelope.usersByID[typed.UserID]
		if !ok || user == nil {
			return nil
		}
		return user.AsInputPeer()
	case *tg.PeerChat:
		if typed.ChatID == 0 {
			return nil
		}
		return &tg.InputPeerChat{ChatID: typed.ChatID}
	case *tg.PeerChannel:
		info, ok := envelope.chatsByID[typed.ChannelID]
		if !ok || info.inputPeer == nil {
			return nil
		}
		return cloneInputPeer(info.inputPeer)
	default:
		return nil
	}
}
