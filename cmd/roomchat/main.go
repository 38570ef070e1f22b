package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/webinarium/roomchat/internal/admission"
	"github.com/webinarium/roomchat/internal/backend"
	"github.com/webinarium/roomchat/internal/channel"
	"github.com/webinarium/roomchat/internal/config"
	"github.com/webinarium/roomchat/internal/database"
	"github.com/webinarium/roomchat/internal/domain"
	"github.com/webinarium/roomchat/internal/identity"
	"github.com/webinarium/roomchat/internal/moderation"
	"github.com/webinarium/roomchat/internal/session"
)

func main() {
	roomID := flag.String("room", "", "room id to join")
	name := flag.String("name", "", "guest display name")
	phone := flag.String("phone", "", "guest phone (guest entry only)")
	token := flag.String("token", "", "operator token (bypasses the admission gate)")
	flag.Parse()

	if *roomID == "" {
		log.Fatal("missing -room")
	}

	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, cleanup, err := buildStore(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer cleanup()

	cms := backend.NewClient(cfg.ChatAPIBase, nil)

	id, err := resolveIdentity(ctx, cfg, cms, store, *roomID, *token, *name, *phone)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("entering room %s as %s (%s)", id.RoomID, id.DisplayName, id.Role)

	sess := channel.NewSession(cfg.WSBase, nil, cfg.BackoffBase)
	coord := moderation.NewCoordinator(*roomID, sess, cms)
	sess.Subscribe(coord)
	sess.Subscribe(&printer{})
	sess.SetIdentity(ctx, id)
	if err := sess.Connect(ctx); err != nil {
		log.Fatal(err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return watchWake(ctx, sess) })
	g.Go(func() error { return inputLoop(ctx, sess, coord, id) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("exiting: %v", err)
	}
	sess.Disconnect()
}

// buildStore picks the guest-session backend from config.
func buildStore(cfg *config.Config) (session.Store, func(), error) {
	switch cfg.SessionStore {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		return session.NewRedisStore(client, cfg.SessionTTL), func() { client.Close() }, nil
	case "postgres":
		pool, err := database.Connect(cfg)
		if err != nil {
			return nil, nil, err
		}
		return session.NewPostgresStore(pool, cfg.SessionTTL), pool.Close, nil
	default:
		return session.NewMemoryStore(cfg.SessionTTL), func() {}, nil
	}
}

// resolveIdentity builds the room identity: operators through their
// token, guests through the admission gate (with cached re-entry).
func resolveIdentity(ctx context.Context, cfg *config.Config, cms *backend.Client, store session.Store, roomID, token, name, phone string) (domain.RoomIdentity, error) {
	if token != "" {
		op, err := identity.ParseOperatorToken(token, cfg.JWTSecret)
		if err != nil {
			return domain.RoomIdentity{}, err
		}
		if name == "" {
			name = op.UserID.String()
		}
		return op.RoomIdentity(roomID, name), nil
	}

	if name == "" {
		return domain.RoomIdentity{}, errors.New("guest entry needs -name")
	}

	gate := admission.NewGate(cms, store)
	if cached, ok, err := gate.CheckAccess(ctx, roomID); err == nil && ok {
		return guestIdentity(roomID, name, cached), nil
	} else if err != nil {
		log.Printf("session check failed, verifying from scratch: %v", err)
	}

	guest, err := gate.Verify(ctx, roomID, name, phone)
	switch {
	case errors.Is(err, admission.ErrDenied):
		return domain.RoomIdentity{}, fmt.Errorf("access denied: name and phone did not match the guest list")
	case errors.Is(err, admission.ErrUnavailable):
		return domain.RoomIdentity{}, fmt.Errorf("admission service unavailable, try again later: %w", err)
	case err != nil:
		return domain.RoomIdentity{}, err
	}
	return guestIdentity(roomID, name, guest), nil
}

func guestIdentity(roomID, name string, s domain.GuestSession) domain.RoomIdentity {
	return domain.RoomIdentity{
		RoomID:         roomID,
		UserIdentifier: s.UserID,
		DisplayName:    name,
		Role:           domain.RoleGuest,
	}
}

// watchWake feeds SIGUSR1 (the console's "connectivity regained"
// signal) back into the session's connect path.
func watchWake(ctx context.Context, sess *channel.Session) error {
	wake := make(chan os.Signal, 1)
	signal.Notify(wake, syscall.SIGUSR1)
	defer signal.Stop(wake)

	for {
		select {
		case <-wake:
			sess.Wake(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func inputLoop(ctx context.Context, sess *channel.Session, coord *moderation.Coordinator, id domain.RoomIdentity) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var err error
		switch {
		case line == "/quit":
			return context.Canceled
		case line == "/del":
			err = coord.DeleteSelected(ctx)
		case line == "/ban":
			err = coord.BanSelected(ctx)
		case line == "/delban":
			err = coord.DeleteBanSelected(ctx)
		case line == "/ignore":
			err = coord.IgnoreSelected(ctx)
		case line == "/lock":
			err = coord.ToggleChatLock(ctx)
			if err == nil {
				fmt.Printf("chat locked: %v\n", coord.ChatLocked())
			}
		case line == "/view":
			for _, msg := range coord.Visible(id.DisplayName, id.Role) {
				fmt.Printf("[%s] %s: %s\n", moderation.Badge(msg.Role), msg.Username, msg.Text)
			}
		case strings.HasPrefix(line, "/sel "):
			if !coord.ToggleSelect(strings.TrimPrefix(line, "/sel ")) {
				fmt.Println("no such message")
			}
		case strings.HasPrefix(line, "/"):
			fmt.Println("commands: /sel <id> /del /ban /delban /ignore /lock /view /quit")
		default:
			err = sess.SendMessage(ctx, line)
		}

		if err != nil {
			log.Printf("command failed: %v", err)
		}
	}
	return scanner.Err()
}

// printer dumps channel traffic to the console.
type printer struct{}

func (p *printer) OnMessage(msg domain.Message) {
	fmt.Printf("%s [%s] %s: %s\n", msg.CreatedAt.Format("15:04:05"), moderation.Badge(msg.Role), msg.Username, msg.Text)
}

func (p *printer) OnEvent(evt domain.Event) {
	fmt.Printf("* event %s %s\n", evt.Type, string(evt.Data))
}

func (p *printer) OnStatus(status channel.Status) {
	fmt.Printf("* %s\n", status)
}

func (p *printer) OnTerminal(err error) {
	fmt.Printf("* connection lost for good (%v), type /quit or reconnect with SIGUSR1\n", err)
}
