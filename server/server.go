package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/malonaz/companion/conversation"
	"github.com/malonaz/companion/internal/configuration"
	"github.com/malonaz/companion/internal/debug"
	"github.com/malonaz/companion/store"
)

//go:embed templates
var templatesFS embed.FS

type PageData struct {
	Title          string
	Query          string
	ShowBack       bool
	SelectedChatID string
	Chat           *ChatViewModel
	Chats          []ChatViewModel
}

// ChatViewModel represents a chat with formatted time for the template
type ChatViewModel struct {
	*store.Chat
	FormattedTime string
}

// HasPending returns true if a reply is still on its way.
func (c ChatViewModel) HasPending() bool {
	for _, message := range c.Messages {
		if message.IsPending() {
			return true
		}
	}
	return false
}

// NewServeCmd creates a new serve command
func NewServeCmd(config *configuration.Config, s *store.Store, replier conversation.Replier, speaker conversation.Speaker) *cobra.Command {
	var opts struct {
		Port int
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a web interface for chatting",
		Long:  "Serve a web interface for chatting",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			log := debug.GetLogger()
			driver := conversation.New(ctx, s, replier,
				conversation.WithSpeaker(speaker),
				conversation.WithLogger(log),
				conversation.WithStrictSends(config.StrictSends),
			)
			defer driver.Wait()
			defer cancel()

			server, err := New(driver, log)
			if err != nil {
				return err
			}
			driver.Resume()
			return server.Start(ctx, opts.Port)
		},
	}

	cmd.Flags().IntVarP(&opts.Port, "port", "p", config.Server.Port, "Port to serve on")
	return cmd
}

// Server handles the web interface
type Server struct {
	driver *conversation.Driver
	store  *store.Store
	log    *zap.Logger
	tmpl   *template.Template
}

// New instantiates a server and parses its templates.
func New(driver *conversation.Driver, log *zap.Logger) (*Server, error) {
	funcMap := sprig.HtmlFuncMap()
	funcMap["formatMessage"] = formatMessage
	funcMap["formatTime"] = formatTime

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS,
		"templates/*.tmpl",
		"templates/pages/*.tmpl",
	)
	if err != nil {
		return nil, errors.Wrap(err, "parsing template")
	}
	return &Server{
		driver: driver,
		store:  driver.Store(),
		log:    log,
		tmpl:   tmpl,
	}, nil
}

// Handler returns the routes of the web interface.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleInbox)
	mux.HandleFunc("/chats", s.handleCreateChat)
	mux.HandleFunc("/chat/", s.handleChatRoutes)
	return mux
}

// Start serves until the context is cancelled.
func (s *Server) Start(ctx context.Context, port int) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Server starting on http://localhost%s\n", server.Addr)
	s.log.Info("serving", zap.String("addr", server.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serving")
	}
	return nil
}

func (s *Server) handleChatRoutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 3 || parts[2] == "" {
		http.NotFound(w, r)
		return
	}

	chatID := parts[2]
	if _, ok := s.store.GetChat(chatID); !ok {
		http.NotFound(w, r)
		return
	}

	// Handle different routes based on the path and method
	switch {
	case r.Method == http.MethodGet && len(parts) == 3:
		s.handleChat(w, r, chatID)
	case r.Method == http.MethodDelete && len(parts) == 3:
		s.handleDeleteChat(w, r, chatID)
	case r.Method == http.MethodPost && len(parts) == 4 && parts[3] == "messages":
		s.handleSendMessage(w, r, chatID)
	case r.Method == http.MethodPost && len(parts) == 4 && parts[3] == "rename":
		s.handleRenameChat(w, r, chatID)
	case r.Method == http.MethodPost && len(parts) == 4 && parts[3] == "reset":
		s.handleResetChat(w, r, chatID)
	case r.Method == http.MethodPost && len(parts) == 4 && parts[3] == "delete":
		s.handleDeleteChat(w, r, chatID)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) render(w http.ResponseWriter, data *PageData) {
	if err := s.tmpl.ExecuteTemplate(w, "base", data); err != nil {
		s.log.Error("rendering template", zap.Error(err))
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
	}
}

func formatTime(unixMilli int64) string {
	return time.UnixMilli(unixMilli).Format("Jan 2, 2006 3:04 PM")
}
