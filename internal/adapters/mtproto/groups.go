package mtproto

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"

	"tg-ext-bot/internal/domain"
	"tg-ext-bot/internal/infra/metrics"
)

// ErrUnauthorized возвращается, если сессия MTProto не авторизована.
var ErrUnauthorized = errors.New("mtproto: сессия не авторизована")

// supergroupShift переводит id канала MTProto в id чата Bot API (-100<id>).
const supergroupShift = 1_000_000_000_000

// GroupSource перечисляет группы пользовательского аккаунта через MTProto.
type GroupSource struct {
	client *telegram.Client
	log    zerolog.Logger
}

var _ domain.GroupSource = (*GroupSource)(nil)

// NewGroupSource создаёт MTProto клиент поверх хранилища сессии.
func NewGroupSource(apiID int, apiHash string, storage session.Storage, log zerolog.Logger) *GroupSource {
	client := telegram.NewClient(apiID, apiHash, telegram.Options{SessionStorage: storage})
	return &GroupSource{client: client, log: log.With().Str("component", "mtproto").Logger()}
}

// ListGroups подключается, загружает все чаты аккаунта и отключается.
// Идентификаторы приводятся к формату Bot API, чтобы совпадать с транспортом бота.
func (s *GroupSource) ListGroups(ctx context.Context) ([]domain.LiveGroup, error) {
	var live []domain.LiveGroup
	start := time.Now()
	err := s.client.Run(ctx, func(ctx context.Context) error {
		status, err := s.client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("auth status: %w", err)
		}
		if !status.Authorized {
			return ErrUnauthorized
		}
		selfID := ""
		if status.User != nil {
			selfID = strconv.FormatInt(status.User.ID, 10)
		}
		chats, err := collectChats(ctx, s.client.API(), dialogsPageSize)
		if err != nil {
			return err
		}
		live = convertChats(chats, selfID)
		return nil
	})
	metrics.ObserveNetworkRequest("mtproto", "get_dialogs", "account", start, err)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Int("groups", len(live)).Msg("список групп получен")
	return live, nil
}

const (
	dialogsPageSize = 100
	dialogsMaxPages = 100
)

type dialogsAPI interface {
	MessagesGetDialogs(ctx context.Context, request *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error)
}

type dialogsPage struct {
	dialogs  []tg.DialogClass
	messages []tg.MessageClass
	chats    []tg.ChatClass
	users    []tg.UserClass
	more     bool
}

// collectChats листает диалоги аккаунта и собирает чаты без повторов.
func collectChats(ctx context.Context, api dialogsAPI, pageSize int) ([]tg.ChatClass, error) {
	req := &tg.MessagesGetDialogsRequest{OffsetPeer: &tg.InputPeerEmpty{}, Limit: pageSize}
	seen := make(map[string]struct{})
	var chats []tg.ChatClass
	for i := 0; i < dialogsMaxPages; i++ {
		res, err := api.MessagesGetDialogs(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("messages.getDialogs: %w", err)
		}
		page := readDialogs(res)
		for _, c := range page.chats {
			key := chatKey(c)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			chats = append(chats, c)
		}
		if !page.more || len(page.dialogs) < req.Limit {
			break
		}
		next, ok := nextOffset(page, pageSize)
		if !ok || (next.OffsetID == req.OffsetID && next.OffsetDate == req.OffsetDate) {
			break
		}
		req = next
	}
	return chats, nil
}

func readDialogs(res tg.MessagesDialogsClass) dialogsPage {
	switch v := res.(type) {
	case *tg.MessagesDialogs:
		return dialogsPage{dialogs: v.Dialogs, messages: v.Messages, chats: v.Chats, users: v.Users}
	case *tg.MessagesDialogsSlice:
		return dialogsPage{dialogs: v.Dialogs, messages: v.Messages, chats: v.Chats, users: v.Users, more: true}
	}
	return dialogsPage{}
}

// nextOffset строит запрос следующей страницы от последнего обычного диалога.
func nextOffset(page dialogsPage, pageSize int) (*tg.MessagesGetDialogsRequest, bool) {
	for i := len(page.dialogs) - 1; i >= 0; i-- {
		d, ok := page.dialogs[i].(*tg.Dialog)
		if !ok {
			continue
		}
		peer, ok := inputPeer(d.Peer, page.chats, page.users)
		if !ok {
			return nil, false
		}
		date := 0
		for _, m := range page.messages {
			if id, msgDate, msgPeer, ok := messageMeta(m); ok && id == d.TopMessage && peerKey(msgPeer) == peerKey(d.Peer) {
				date = msgDate
				break
			}
		}
		return &tg.MessagesGetDialogsRequest{
			OffsetDate: date,
			OffsetID:   d.TopMessage,
			OffsetPeer: peer,
			Limit:      pageSize,
		}, true
	}
	return nil, false
}

func messageMeta(m tg.MessageClass) (int, int, tg.PeerClass, bool) {
	switch msg := m.(type) {
	case *tg.Message:
		return msg.ID, msg.Date, msg.PeerID, true
	case *tg.MessageService:
		return msg.ID, msg.Date, msg.PeerID, true
	}
	return 0, 0, nil, false
}

func inputPeer(p tg.PeerClass, chats []tg.ChatClass, users []tg.UserClass) (tg.InputPeerClass, bool) {
	switch peer := p.(type) {
	case *tg.PeerChat:
		return &tg.InputPeerChat{ChatID: peer.ChatID}, true
	case *tg.PeerChannel:
		for _, c := range chats {
			if ch, ok := c.(*tg.Channel); ok && ch.ID == peer.ChannelID {
				return &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}, true
			}
		}
	case *tg.PeerUser:
		for _, u := range users {
			if user, ok := u.(*tg.User); ok && user.ID == peer.UserID {
				return &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash}, true
			}
		}
	}
	return nil, false
}

func peerKey(p tg.PeerClass) string {
	switch peer := p.(type) {
	case *tg.PeerUser:
		return "user:" + strconv.FormatInt(peer.UserID, 10)
	case *tg.PeerChat:
		return "chat:" + strconv.FormatInt(peer.ChatID, 10)
	case *tg.PeerChannel:
		return "channel:" + strconv.FormatInt(peer.ChannelID, 10)
	}
	return ""
}

func chatKey(c tg.ChatClass) string {
	switch c.(type) {
	case *tg.Channel, *tg.ChannelForbidden:
		return "channel:" + strconv.FormatInt(c.GetID(), 10)
	}
	return "chat:" + strconv.FormatInt(c.GetID(), 10)
}

func convertChats(chats []tg.ChatClass, selfID string) []domain.LiveGroup {
	live := make([]domain.LiveGroup, 0, len(chats))
	for _, c := range chats {
		switch chat := c.(type) {
		case *tg.Chat:
			if chat.Left || chat.Deactivated {
				continue
			}
			_, admin := chat.GetAdminRights()
			live = append(live, group(-chat.ID, chat.Title, chat.ParticipantsCount, chat.Creator, admin, selfID))
		case *tg.Channel:
			if !chat.Megagroup || chat.Left {
				continue
			}
			count, _ := chat.GetParticipantsCount()
			_, admin := chat.GetAdminRights()
			live = append(live, group(-(supergroupShift + chat.ID), chat.Title, count, chat.Creator, admin, selfID))
		}
	}
	return live
}

func group(id int64, title string, members int, creator, admin bool, selfID string) domain.LiveGroup {
	g := domain.LiveGroup{
		ID:          strconv.FormatInt(id, 10),
		Name:        title,
		MemberCount: members,
		AdminFlag:   creator || admin,
	}
	if creator {
		g.OwnerID = selfID
	}
	return g
}
