// Package ipc exposes the facade as named request/response channels, the
// shape the desktop shell talks to. A Dispatcher decodes channel arguments
// and returns the operation's Result envelope; Server carries requests
// over a WebSocket.
package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mesh-intelligence/biblia/internal/logging"
	"github.com/mesh-intelligence/biblia/internal/service"
	"github.com/mesh-intelligence/biblia/pkg/types"
)

// Request invokes one channel. Args is a JSON object whose fields depend on
// the channel.
type Request struct {
	ID      string          `json:"id,omitempty"`
	Channel string          `json:"channel"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// Response carries the Result envelope of one Request. ID echoes the
// request's ID.
type Response struct {
	ID      string `json:"id,omitempty"`
	Channel string `json:"channel"`
	Result  any    `json:"result"`
}

// Channel names.
const (
	ChannelListBooks               = "list-books"
	ChannelGetBook                 = "get-book"
	ChannelListVersesInChapter     = "list-verses-in-chapter"
	ChannelGetVerse                = "get-verse"
	ChannelSearch                  = "search"
	ChannelListFavorites           = "list-favorites"
	ChannelAddFavorite             = "add-favorite"
	ChannelRemoveFavorite          = "remove-favorite"
	ChannelIsFavorite              = "is-favorite"
	ChannelListAnnotations         = "list-annotations"
	ChannelListAnnotationsForVerse = "list-annotations-for-verse"
	ChannelAddAnnotation           = "add-annotation"
	ChannelUpdateAnnotation        = "update-annotation"
	ChannelRemoveAnnotation        = "remove-annotation"
	ChannelAddHistoryEntry         = "add-history-entry"
	ChannelListHistory             = "list-history"
	ChannelGetVerseOfDay           = "get-verse-of-day"
	ChannelGetSetting              = "get-setting"
	ChannelSetSetting              = "set-setting"
	ChannelGetStatistics           = "get-statistics"
	ChannelGetStatus               = "get-status"
)

// Argument shapes. Unknown fields are ignored.
type (
	idArgs struct {
		ID int64 `json:"id"`
	}
	verseArgs struct {
		VerseID int64 `json:"verse_id"`
	}
	chapterArgs struct {
		BookID  int64 `json:"book_id"`
		Chapter int   `json:"chapter"`
	}
	verseRefArgs struct {
		BookID  int64 `json:"book_id"`
		Chapter int   `json:"chapter"`
		Verse   int   `json:"verse"`
	}
	updateAnnotationArgs struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	settingArgs struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
)

type handler func(ctx context.Context, args json.RawMessage) (any, error)

// Dispatcher routes requests to facade operations.
type Dispatcher struct {
	svc      *service.Service
	handlers map[string]handler
	logger   *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the dispatcher's logger.
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher registers every channel against svc.
func NewDispatcher(svc *service.Service, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{svc: svc, logger: logging.Component("ipc")}
	for _, opt := range opts {
		opt(d)
	}
	d.handlers = map[string]handler{
		ChannelListBooks: noArgs(func(ctx context.Context) any { return svc.ListBooks(ctx) }),
		ChannelGetBook:   withArgs(func(ctx context.Context, a idArgs) any {
			return svc.GetBook(ctx, a.ID)
		}),
		ChannelListVersesInChapter: withArgs(func(ctx context.Context, a chapterArgs) any {
			return svc.ListVersesInChapter(ctx, a.BookID, a.Chapter)
		}),
		ChannelGetVerse: withArgs(func(ctx context.Context, a verseRefArgs) any {
			return svc.GetVerse(ctx, a.BookID, a.Chapter, a.Verse)
		}),
		ChannelSearch: withArgs(func(ctx context.Context, a types.SearchParams) any {
			return svc.Search(ctx, a)
		}),
		ChannelListFavorites: noArgs(func(ctx context.Context) any { return svc.ListFavorites(ctx) }),
		ChannelAddFavorite:   withArgs(func(ctx context.Context, a verseArgs) any {
			return svc.AddFavorite(ctx, a.VerseID)
		}),
		ChannelRemoveFavorite: withArgs(func(ctx context.Context, a verseArgs) any {
			return svc.RemoveFavorite(ctx, a.VerseID)
		}),
		ChannelIsFavorite: withArgs(func(ctx context.Context, a verseArgs) any {
			return svc.IsFavorite(ctx, a.VerseID)
		}),
		ChannelListAnnotations:         noArgs(func(ctx context.Context) any { return svc.ListAnnotations(ctx) }),
		ChannelListAnnotationsForVerse: withArgs(func(ctx context.Context, a verseArgs) any {
			return svc.ListAnnotationsForVerse(ctx, a.VerseID)
		}),
		ChannelAddAnnotation: withArgs(func(ctx context.Context, a types.AnnotationInput) any {
			return svc.AddAnnotation(ctx, a)
		}),
		ChannelUpdateAnnotation: withArgs(func(ctx context.Context, a updateAnnotationArgs) any {
			return svc.UpdateAnnotation(ctx, a.ID, a.Title, a.Body)
		}),
		ChannelRemoveAnnotation: withArgs(func(ctx context.Context, a idArgs) any {
			return svc.RemoveAnnotation(ctx, a.ID)
		}),
		ChannelAddHistoryEntry: withArgs(func(ctx context.Context, a chapterArgs) any {
			return svc.AddHistoryEntry(ctx, a.BookID, a.Chapter)
		}),
		ChannelListHistory:   noArgs(func(ctx context.Context) any { return svc.ListHistory(ctx) }),
		ChannelGetVerseOfDay: noArgs(func(ctx context.Context) any { return svc.GetVerseOfDay(ctx) }),
		ChannelGetSetting:    withArgs(func(ctx context.Context, a settingArgs) any {
			return svc.GetSetting(ctx, a.Key)
		}),
		ChannelSetSetting: withArgs(func(ctx context.Context, a settingArgs) any {
			return svc.SetSetting(ctx, a.Key, a.Value)
		}),
		ChannelGetStatistics: noArgs(func(ctx context.Context) any { return svc.GetStatistics(ctx) }),
		ChannelGetStatus:     noArgs(func(ctx context.Context) any {
			st := svc.Status()
			return service.Result[service.Status]{Success: true, Data: &st}
		}),
	}
	return d
}

func noArgs(fn func(ctx context.Context) any) handler {
	return func(ctx context.Context, _ json.RawMessage) (any, error) {
		return fn(ctx), nil
	}
}

func withArgs[A any](fn func(ctx context.Context, args A) any) handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args A
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, &types.ValidationError{Field: "args", Message: err.Error()}
			}
		}
		return fn(ctx, args), nil
	}
}

// Channels returns the registered channel names, sorted.
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs one request. It always returns a Response; failures are
// carried in the envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	resp := Response{ID: req.ID, Channel: req.Channel}
	if req.ID != "" {
		ctx = logging.WithRequestID(ctx, req.ID)
	}
	logger := logging.FromContext(ctx, d.logger)

	h, ok := d.handlers[req.Channel]
	if !ok {
		logger.Debug("unknown channel", "channel", req.Channel)
		resp.Result = service.Failure(&types.ValidationError{
			Field:   "channel",
			Value:   req.Channel,
			Message: fmt.Sprintf("unknown channel %q", req.Channel),
		})
		return resp
	}

	result, err := h(ctx, req.Args)
	if err != nil {
		logger.Debug("bad request", "channel", req.Channel, "error", err)
		resp.Result = service.Failure(err)
		return resp
	}
	resp.Result = result
	return resp
}

// DispatchJSON decodes a request, dispatches it and encodes the response.
func (d *Dispatcher) DispatchJSON(ctx context.Context, data []byte) []byte {
	var req Request
	var resp Response
	if err := json.Unmarshal(data, &req); err != nil {
		resp = Response{Result: service.Failure(&types.ValidationError{
			Field:   "request",
			Message: strings.TrimPrefix(err.Error(), "json: "),
		})}
	} else {
		resp = d.Dispatch(ctx, req)
	}

	out, err := json.Marshal(resp)
	if err != nil {
		d.logger.Error("encode response", "channel", req.Channel, "error", err)
		out, _ = json.Marshal(Response{ID: req.ID, Channel: req.Channel, Result: service.Failure(err)})
	}
	return out
}
