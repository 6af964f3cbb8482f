package testfixtures

import (
	"bytes"
	"context"
	"mime/multipart"
	"strings"

	"github.com/broady/fluidgen"
)

type GetUserRequest struct {
	ID     int64  `path:"id"`
	Expand bool   `query:"expand" default:"false" doc:"Include orders."`
	Trace  string `header:"X-Trace-Id"`
}

type ListOrdersRequest struct {
	UserID int64   `path:"user_id"`
	Limit  int     `query:"limit" default:"20" validate:"gte=1,lte=100"`
	Status string  `query:"status" enum:"open,closed"`
	Cursor *string `query:"cursor"`
	Token  string  `security:"oauth:orders.read"`
	Store  *Store  `inject:""`
}

type CreateOrderRequest struct {
	Order Order                     `json:"order"`
	Tasks *fluidgen.BackgroundTasks `json:"-"`
}

type UpdateUserRequest struct {
	ID   int64  `path:"id"`
	User User   `json:"user"`
	Key  string `security:"apiKey"`
}

type UploadAvatarRequest struct {
	ID      int64                 `path:"id"`
	Caption string                `form:"caption" validate:"max=140"`
	File    *multipart.FileHeader `file:"file"`
}

// GetUser returns a single user.
func GetUser(ctx context.Context, req GetUserRequest) (*User, error) {
	return &User{Name: "ada"}, nil
}

// ListOrders pages through a user's orders.
func ListOrders(ctx context.Context, req ListOrdersRequest) (*Page[Order], error) {
	return &Page[Order]{}, nil
}

// CreateOrder places an order.
func CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	req.Tasks.Add(func(context.Context) {})
	return &req.Order, nil
}

// UpdateUser replaces or patches a user.
func UpdateUser(ctx context.Context, req UpdateUserRequest) (*User, error) {
	return &req.User, nil
}

// UploadAvatar stores a profile picture.
func UploadAvatar(ctx context.Context, req UploadAvatarRequest) (*User, error) {
	return &User{}, nil
}

// WatchOrders pushes order updates as they happen.
func WatchOrders(ctx context.Context, req struct{}) (fluidgen.EventStream[Order], error) {
	return fluidgen.EventStream[Order]{}, nil
}

// ExportOrders writes every order as CSV.
func ExportOrders(ctx context.Context, req struct{}) (*fluidgen.StreamingResponse, error) {
	return fluidgen.NewStreamingResponse(strings.NewReader("id\n"), "text/csv"), nil
}

// DownloadInvoice renders an invoice.
func DownloadInvoice(ctx context.Context, req struct {
	ID int64 `path:"id"`
}) (*fluidgen.StreamingResponse, error) {
	return &fluidgen.StreamingResponse{Body: bytes.NewReader(nil), MediaType: "application/pdf"}, nil
}

// StreamLogs streams logs in a format chosen at runtime.
func StreamLogs(ctx context.Context, req struct {
	Format string `query:"format"`
}) (*fluidgen.StreamingResponse, error) {
	return fluidgen.NewStreamingResponse(strings.NewReader(""), "text/"+req.Format), nil
}

// Feed returns a newline-delimited JSON feed.
func Feed(ctx context.Context, req struct{}) (any, error) {
	return fluidgen.NewStreamingResponse(strings.NewReader("{}\n"), "application/x-ndjson"), nil
}

// TailLogs follows the log as plain text.
func TailLogs(ctx context.Context, req struct{}) (*fluidgen.StreamingResponse, error) {
	html := func() *fluidgen.StreamingResponse {
		return fluidgen.NewStreamingResponse(strings.NewReader(""), "text/html")
	}
	_ = html
	return fluidgen.NewStreamingResponse(strings.NewReader("tail"), "text/plain"), nil
}

// Lookalike returns a type that merely shares the wrapper's name.
func Lookalike(ctx context.Context, req struct{}) (*StreamingResponse, error) {
	return NewStreamingResponse("text/csv"), nil
}

// ListLocations returns pickup points.
func ListLocations(ctx context.Context, req struct{}) ([]Location, error) {
	return nil, nil
}

// NewApp registers the shop routes.
func NewApp() *fluidgen.App {
	app := fluidgen.NewApp().
		SecurityScheme("oauth", fluidgen.OAuth2("/token", map[string]string{
			"orders.read": "Read orders",
		}).WithDescription("OAuth2 password flow")).
		SecurityScheme("apiKey", fluidgen.APIKey("header", "X-API-Key")).
		Provide(&Store{})

	app.Handle("/users/{id}", fluidgen.NewHandler(GetUser).Method("GET"))
	app.Handle("/users/{id}", fluidgen.NewHandler(UpdateUser).Method("PUT", "PATCH"))
	app.Handle("/users/{user_id}/orders", fluidgen.NewHandler(ListOrders).Method("GET"))
	app.Handle("/orders", fluidgen.NewHandler(CreateOrder))
	app.Handle("/users/{id}/avatar", fluidgen.NewHandler(UploadAvatar))
	app.Handle("/admins/{id}", fluidgen.NewHandler(func(ctx context.Context, req GetUserRequest) (*Admin, error) {
		return &Admin{}, nil
	}).Method("GET").Name("getAdmin"))
	app.Handle("/orders/events", fluidgen.NewHandler(WatchOrders).Method("GET"))
	app.Handle("/orders/export", fluidgen.NewHandler(ExportOrders).Method("GET"))
	app.Handle("/orders/{id}/invoice", fluidgen.NewHandler(DownloadInvoice).Method("GET"))
	app.Handle("/logs", fluidgen.NewHandler(StreamLogs).Method("GET"))
	app.Handle("/feed", fluidgen.NewHandler(Feed).Method("GET"))
	app.Handle("/logs/tail", fluidgen.NewHandler(TailLogs).Method("GET"))
	app.Handle("/lookalike", fluidgen.NewHandler(Lookalike).Method("GET"))
	app.Handle("/locations", fluidgen.NewHandler(ListLocations).Method("GET"))
	return app
}
