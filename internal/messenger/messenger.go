// Package messenger описывает всё, что бот делает на стороне чат-платформы:
// сообщения, треды, участники гильдии и постоянные кнопки чекина.
package messenger

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"time"
)

var (
	ErrNotFound  = errors.New("messenger: объект не найден")
	ErrForbidden = errors.New("messenger: нет прав")
	ErrTransient = errors.New("messenger: платформа временно недоступна")
)

// цвета встраиваемых сообщений
const (
	ColorBlue     = 0x3498db
	ColorBlurple  = 0x5865f2
	ColorDarkGray = 0x607d8b
)

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      string       `json:"footer,omitempty"`
	Timestamp   *time.Time   `json:"timestamp,omitempty"`
}

func (e *Embed) AddField(name, value string) {
	e.Fields = append(e.Fields, EmbedField{Name: name, Value: value})
}

type Button struct {
	CustomID string `json:"custom_id"`
	Label    string `json:"label"`
}

type SelectOption struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

type Select struct {
	CustomID    string         `json:"custom_id"`
	Placeholder string         `json:"placeholder,omitempty"`
	Options     []SelectOption `json:"options"`
}

// Message - одно исходящее сообщение; кнопка и меню взаимоисключающие
type Message struct {
	Content string  `json:"content,omitempty"`
	Embed   *Embed  `json:"embed,omitempty"`
	Button  *Button `json:"button,omitempty"`
	Select  *Select `json:"select,omitempty"`
	Pin     bool    `json:"pin,omitempty"`
}

type MessageRef struct {
	ID        int64 `json:"id,string"`
	ChannelID int64 `json:"channel_id,string"`
}

type Channel struct {
	ID       int64  `json:"id,string"`
	Name     string `json:"name"`
	ParentID int64  `json:"parent_id,string,omitempty"`
}

type Member struct {
	UserID      int64    `json:"user_id,string"`
	DisplayName string   `json:"display_name"`
	Roles       []string `json:"roles"`
}

func (m *Member) HasRole(name string) bool {
	return m != nil && slices.Contains(m.Roles, name)
}

// CheckinControl - постоянная кнопка чекина, знает только id и имя задачи
type CheckinControl struct {
	TaskID   int64
	TaskName string
}

type Messenger interface {
	SendMessage(ctx context.Context, channelID int64, msg Message) (*MessageRef, error)
	CreateThread(ctx context.Context, parentID int64, name string) (*Channel, error)
	ArchiveThread(ctx context.Context, threadID int64) error
	DeleteThread(ctx context.Context, threadID int64) error
	FetchChannel(ctx context.Context, channelID int64) (*Channel, error)
	ResolveMember(ctx context.Context, guildID, userID int64) (*Member, error)
	RegisterPersistentControl(ctx context.Context, control CheckinControl) error
}

func UserMention(id int64) string {
	return "<@" + strconv.FormatInt(id, 10) + ">"
}

func ChannelMention(id int64) string {
	return "<#" + strconv.FormatInt(id, 10) + ">"
}
