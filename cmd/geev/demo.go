package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vedran77/geev/internal/apiclient"
	"github.com/vedran77/geev/internal/domain"
	"github.com/vedran77/geev/internal/mockapi"
	"github.com/vedran77/geev/internal/repository/memory"
	"github.com/vedran77/geev/internal/securestore"
	"github.com/vedran77/geev/internal/service"
	"github.com/vedran77/geev/pkg/geo"
)

var (
	demoRemote   string
	demoSearch   string
	demoCategory string
	demoEmail    string
	demoPassword string
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a client session and print the feed",
	Long: `Restores the stored session (or logs in), loads the item feed, applies
the search and category filters, prints what is left and then the inbox.

Without --remote the session runs against an in-process mock backend.

Example:
  geev demo --search canapé
  geev demo --remote http://localhost:8080 --category furniture`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().StringVar(&demoRemote, "remote", "", "Server base URL (default: API_URL, else in-process)")
	demoCmd.Flags().StringVar(&demoSearch, "search", "", "Search query")
	demoCmd.Flags().StringVar(&demoCategory, "category", "", "Category filter")
	demoCmd.Flags().StringVar(&demoEmail, "email", mockapi.DemoEmail, "Login email")
	demoCmd.Flags().StringVar(&demoPassword, "password", mockapi.DemoPassword, "Login password")
}

type session struct {
	auth  *service.AuthService
	items *service.ItemsService
	chat  *service.ChatService
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if demoCategory != "" && !domain.Category(demoCategory).Valid() {
		return fmt.Errorf("unknown category %q (one of %v)", demoCategory, domain.Categories())
	}

	secure, closeSecure, err := securestore.Open(ctx, securestore.Options{
		Backend:  cfg.SecureStore,
		Path:     cfg.SecureStorePath,
		Key:      cfg.SecureStoreKey,
		RedisURL: cfg.RedisURL,
	})
	if err != nil {
		return err
	}
	defer closeSecure()

	s, err := newSession(secure)
	if err != nil {
		return err
	}

	s.auth.CheckAuthStatus(ctx)
	if !s.auth.State().IsAuthenticated {
		if err := s.auth.Login(ctx, mockapi.Credentials{Email: demoEmail, Password: demoPassword}); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}
	user := s.auth.CurrentUser()
	logger.Info("signed in", zap.String("user_id", user.ID), zap.String("email", user.Email))

	s.items.LoadItems(ctx)
	if demoSearch != "" {
		s.items.SearchItems(demoSearch)
	}
	if demoCategory != "" {
		s.items.FilterByCategory(domain.Category(demoCategory))
	}

	out := cmd.OutOrStdout()
	state := s.items.State()
	if state.Error != "" {
		return fmt.Errorf("loading items: %s", state.Error)
	}
	fmt.Fprintf(out, "Hello %s! %d of %d items match.\n\n", user.FirstName, len(state.FilteredItems), len(state.Items))
	printItems(out, state.FilteredItems, user)

	s.chat.LoadConversations(ctx)
	chat := s.chat.State()
	if chat.Error != "" {
		return fmt.Errorf("loading conversations: %s", chat.Error)
	}
	fmt.Fprintf(out, "\n%d conversation(s)\n\n", len(chat.Conversations))
	printConversations(out, chat.Conversations, user.ID)
	return nil
}

// newSession wires the three containers to either the remote API or an
// in-process facade over the seeded memory store.
func newSession(secure securestore.Store) (*session, error) {
	var (
		authAPI     service.AuthAPI
		itemsAPI    service.ItemsAPI
		messagesAPI service.MessagesAPI
		s           = &session{}
	)

	remote := demoRemote
	if remote == "" {
		remote = cfg.APIURL
	}

	if remote != "" {
		client := apiclient.New(remote,
			apiclient.WithTokenSource(func() string { return s.auth.Token() }),
			apiclient.WithLogger(logger),
		)
		authAPI, itemsAPI, messagesAPI = client, client, client
		logger.Debug("using remote api", zap.String("url", remote))
	} else {
		store, err := memory.NewDefault()
		if err != nil {
			return nil, err
		}
		delay := mockapi.Latency{Scale: cfg.LatencyScale}
		authAPI = mockapi.NewAuthAPI(store.Users, delay, cfg.JWTSecret)
		itemsAPI = mockapi.NewItemsAPI(store.Items, delay)
		messagesAPI = mockapi.NewMessagesAPI(store, delay)
	}

	s.auth = service.NewAuthService(authAPI, secure, logger)
	s.items = service.NewItemsService(itemsAPI, s.auth, logger)
	s.chat = service.NewChatService(messagesAPI, s.auth, logger)
	s.auth.OnProfileUpdated(s.items.RefreshOwner)
	s.auth.OnProfileUpdated(s.chat.RefreshParticipant)
	return s, nil
}

func printItems(w io.Writer, items []*domain.Item, user *domain.User) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tCONDITION\tSTATUS\tCITY\tDISTANCE")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			it.ID, it.Title, it.Category, it.Condition, it.Status, it.Location.City, distanceFrom(user, it))
	}
	tw.Flush()
}

func printConversations(w io.Writer, convs []*domain.Conversation, userID string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tITEM\tWITH\tUNREAD\tLAST MESSAGE")
	for _, c := range convs {
		with := "-"
		if p, ok := c.Counterpart(userID); ok {
			with = p.FirstName + " " + p.LastName
		}
		last := ""
		if c.LastMessage != nil {
			last = c.LastMessage.Content
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", c.ID, c.Item.Title, with, c.UnreadCount, last)
	}
	tw.Flush()
}

// distanceFrom prefers the distance stored on the item, else computes it
// from the user's location.
func distanceFrom(user *domain.User, item *domain.Item) string {
	if item.Location.Distance != nil {
		return geo.FormatDistance(*item.Location.Distance)
	}
	if user.Location == nil {
		return "-"
	}
	km := geo.DistanceKm(
		geo.Point{Latitude: user.Location.Latitude, Longitude: user.Location.Longitude},
		geo.Point{Latitude: item.Location.Latitude, Longitude: item.Location.Longitude},
	)
	return geo.FormatDistance(km)
}
