// Package messengertest - потокобезопасная подделка мессенджера для тестов.
package messengertest

import (
	"context"
	"sync"
	"taskBot/internal/messenger"
)

type Sent struct {
	ChannelID int64
	Message   messenger.Message
}

type Fake struct {
	mu     sync.Mutex
	nextID int64

	Sent     []Sent
	Threads  []*messenger.Channel
	Archived []int64
	Deleted  []int64
	Controls []messenger.CheckinControl
	Members  map[int64]*messenger.Member

	// ошибки по умолчанию nil; SendErr вызывается на каждую отправку
	SendErr         func(channelID int64) error
	CreateThreadErr error
	ArchiveErr      error
	DeleteErr       error
	RegisterErr     error
}

var _ messenger.Messenger = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		nextID:  9000,
		Members: make(map[int64]*messenger.Member),
	}
}

// AddMember регистрирует участника гильдии с ролями
func (f *Fake) AddMember(userID int64, roles ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Members[userID] = &messenger.Member{UserID: userID, Roles: roles}
}

func (f *Fake) SendMessage(ctx context.Context, channelID int64, msg messenger.Message) (*messenger.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SendErr != nil {
		if err := f.SendErr(channelID); err != nil {
			return nil, err
		}
	}
	f.nextID++
	f.Sent = append(f.Sent, Sent{ChannelID: channelID, Message: msg})
	return &messenger.MessageRef{ID: f.nextID, ChannelID: channelID}, nil
}

func (f *Fake) CreateThread(ctx context.Context, parentID int64, name string) (*messenger.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CreateThreadErr != nil {
		return nil, f.CreateThreadErr
	}
	f.nextID++
	ch := &messenger.Channel{ID: f.nextID, Name: name, ParentID: parentID}
	f.Threads = append(f.Threads, ch)
	return ch, nil
}

func (f *Fake) ArchiveThread(ctx context.Context, threadID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ArchiveErr != nil {
		return f.ArchiveErr
	}
	f.Archived = append(f.Archived, threadID)
	return nil
}

func (f *Fake) DeleteThread(ctx context.Context, threadID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.Deleted = append(f.Deleted, threadID)
	return nil
}

func (f *Fake) FetchChannel(ctx context.Context, channelID int64) (*messenger.Channel, error) {
	return &messenger.Channel{ID: channelID}, nil
}

func (f *Fake) ResolveMember(ctx context.Context, guildID, userID int64) (*messenger.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.Members[userID]
	if !ok {
		return nil, messenger.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (f *Fake) RegisterPersistentControl(ctx context.Context, control messenger.CheckinControl) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.RegisterErr != nil {
		return f.RegisterErr
	}
	f.Controls = append(f.Controls, control)
	return nil
}

// SentTo возвращает сообщения, отправленные в канал
func (f *Fake) SentTo(channelID int64) []messenger.Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	res := []messenger.Message{}
	for _, s := range f.Sent {
		if s.ChannelID == channelID {
			res = append(res, s.Message)
		}
	}
	return res
}

func (f *Fake) SentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Sent)
}
