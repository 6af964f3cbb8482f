package fluidgen

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"reflect"

	"go.uber.org/zap"
)

// EventStream is a handler response delivered as Server-Sent Events.
// Each value yielded by Events is written as one `data:` frame.
//
//	func Subscribe(ctx context.Context, req SubscribeRequest) (fluidgen.EventStream[*FeedEvent], error) {
//	    return fluidgen.EventStream[*FeedEvent]{Events: feed.Watch(ctx, req.Topic)}, nil
//	}
//
// Types that embed an EventStream are event streams too.
type EventStream[T any] struct {
	Events iter.Seq2[T, error]
}

func (EventStream[T]) eventStreamElem() reflect.Type { return reflect.TypeFor[T]() }

func (s EventStream[T]) anyEvents() iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		if s.Events == nil {
			return
		}
		for v, err := range s.Events {
			if !yield(v, err) {
				return
			}
		}
	}
}

type eventStreamer interface {
	eventStreamElem() reflect.Type
	anyEvents() iter.Seq2[any, error]
}

var eventStreamerType = reflect.TypeFor[eventStreamer]()

// EventStreamElem reports whether t is an event stream and returns its event
// type.
func EventStreamElem(t reflect.Type) (reflect.Type, bool) {
	if t == nil || !t.Implements(eventStreamerType) {
		return nil, false
	}
	v := reflect.Zero(t)
	if t.Kind() == reflect.Pointer {
		v = reflect.New(t.Elem())
	}
	return v.Interface().(eventStreamer).eventStreamElem(), true
}

// StreamingResponse is a handler response whose body is copied to the client
// as-is with the given media type.
type StreamingResponse struct {
	Body      io.Reader
	MediaType string
}

// NewStreamingResponse returns a streaming response. The generator reads the
// mediaType argument from the call site to pick the client pattern, so pass a
// constant where possible.
func NewStreamingResponse(body io.Reader, mediaType string) *StreamingResponse {
	return &StreamingResponse{Body: body, MediaType: mediaType}
}

func (r StreamingResponse) streamingResponse() StreamingResponse { return r }

type streamingResponder interface {
	streamingResponse() StreamingResponse
}

var streamingResponderType = reflect.TypeFor[streamingResponder]()

// IsStreamingResponse reports whether t is StreamingResponse, a pointer to it,
// or a type embedding it.
func IsStreamingResponse(t reflect.Type) bool {
	return t != nil && t.Implements(streamingResponderType)
}

func (a *App) writeEventStream(w http.ResponseWriter, r *http.Request, route string, s eventStreamer) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		a.writeError(w, NewError(CodeInternal, "streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	flusher.Flush()

	for event, err := range s.anyEvents() {
		if r.Context().Err() != nil {
			return
		}
		if err != nil {
			data, _ := json.Marshal(DefaultErrorTransformer(err))
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
			flusher.Flush()
			return
		}
		data, err := json.Marshal(event)
		if err != nil {
			a.logger.Error("failed to marshal SSE event", zap.String("route", route), zap.Error(err))
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			a.logger.Debug("client disconnected during write", zap.String("route", route), zap.Error(err))
			return
		}
		flusher.Flush()
	}
}

func (a *App) writeStreamingResponse(w http.ResponseWriter, route string, s StreamingResponse) {
	mediaType := s.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mediaType)
	if s.Body == nil {
		return
	}
	if c, ok := s.Body.(io.Closer); ok {
		defer c.Close()
	}
	if _, err := io.Copy(w, s.Body); err != nil {
		a.logger.Debug("streaming response aborted", zap.String("route", route), zap.Error(err))
	}
}
