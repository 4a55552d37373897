package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"

	"github.com/sozial/client/internal/assets"
	"github.com/sozial/client/internal/bridge"
	"github.com/sozial/client/internal/config"
	"github.com/sozial/client/internal/engine"
	"github.com/sozial/client/internal/models"
	"github.com/sozial/client/internal/session"
	"github.com/sozial/client/internal/store"
)

const sozialVersion = "0.1.0"

const usage = `Sozial client core.

Backend selection and credentials come from the environment (STORE_BACKEND,
FIREBASE_PROJECT_ID, FIREBASE_API_KEY, FIREBASE_STORAGE_BUCKET, MONGO_URI).

Usage:
    sozial serve [--listen=<addr>]
    sozial signup <email> <password> --name=<name> --age=<age> --city=<city>
    sozial login <email> <password>
    sozial logout
    sozial events list
    sozial events create --name=<name> --capacity=<capacity>
        --description=<description> --address=<address>
        --category=<category> [--image=<path>]
    sozial events update <id> --name=<name> --capacity=<capacity>
        --description=<description> --address=<address>
        --category=<category> [--image=<path>]
    sozial events delete <id>
    sozial profile show
    sozial profile save --name=<name> --age=<age> --city=<city>
        [--bio=<bio>] [--image=<path>]

Options:
    -h --help                    Show this screen.
    --version                    Show version.
    --listen=<addr>              Bridge listen address (overrides LISTEN_ADDR).
    --image=<path>               Path to a local image to stage for upload.`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], sozialVersion)
	if err != nil {
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app, err := newApp(cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer app.close()

	switch {
	case boolOpt(opts, "serve"):
		if addr, _ := opts.String("--listen"); addr != "" {
			cfg.ListenAddr = addr
		}
		err = app.serve(cfg.ListenAddr)
	case boolOpt(opts, "signup"):
		err = app.signUp(opts)
	case boolOpt(opts, "login"):
		err = app.login(opts)
	case boolOpt(opts, "logout"):
		err = app.logout()
	case boolOpt(opts, "events") && boolOpt(opts, "list"):
		err = app.listEvents()
	case boolOpt(opts, "events") && boolOpt(opts, "create"):
		err = app.createEvent(opts)
	case boolOpt(opts, "events") && boolOpt(opts, "update"):
		err = app.updateEvent(opts)
	case boolOpt(opts, "events") && boolOpt(opts, "delete"):
		err = app.deleteEvent(opts)
	case boolOpt(opts, "profile") && boolOpt(opts, "show"):
		err = app.showProfile()
	case boolOpt(opts, "profile") && boolOpt(opts, "save"):
		err = app.saveProfile(opts)
	}
	if err != nil {
		log.Fatalf("sozial: %v", err)
	}
}

type app struct {
	cfg       *config.Config
	documents store.Store
	objects   assets.ObjectStore
	pipeline  *assets.Pipeline
	sessions  session.Provider
	cache     *session.Cache
	events    *engine.EventEngine
	profile   *engine.ProfileEngine

	closers []func()
}

func newApp(cfg *config.Config) (*app, error) {
	ctx := context.Background()
	a := &app{cfg: cfg}

	switch cfg.StoreBackend {
	case config.BackendFirestore:
		fs, err := store.NewFirestoreStore(ctx, store.FirestoreConfig{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsJSON: cfg.FirebaseCredentialsJSON,
		})
		if err != nil {
			return nil, err
		}
		a.documents = fs
		a.closers = append(a.closers, func() { fs.Close() })
	case config.BackendMongo:
		ms, err := store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		a.documents = ms
		a.closers = append(a.closers, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			ms.Close(closeCtx)
		})
	default:
		mem := store.NewMemoryStore()
		snapshotPath := filepath.Join(cfg.DataDir, "store.json")
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, err
		}
		if err := mem.LoadFrom(snapshotPath); err != nil {
			return nil, err
		}
		a.documents = mem
		a.closers = append(a.closers, func() {
			if err := mem.SaveTo(snapshotPath); err != nil {
				log.Printf("[store] snapshot save failed: %v", err)
			}
		})
	}

	if cfg.StorageBucket != "" {
		gcs, err := assets.NewGCSObjectStore(ctx, cfg.StorageBucket, cfg.FirebaseCredentialsJSON)
		if err != nil {
			return nil, err
		}
		a.objects = gcs
		a.closers = append(a.closers, func() { gcs.Close() })
	} else {
		local, err := assets.NewLocalObjectStore(filepath.Join(cfg.DataDir, "uploads"), "http://localhost"+cfg.ListenAddr)
		if err != nil {
			return nil, err
		}
		a.objects = local
	}
	a.pipeline = assets.NewPipeline(a.objects)

	if cfg.FirebaseAPIKey != "" {
		a.sessions = session.NewFirebaseProvider(cfg.FirebaseAPIKey)
	} else {
		a.sessions = session.NewLocalProvider()
	}

	cache, err := session.NewCache(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	a.cache = cache

	a.events = engine.NewEventEngine(a.documents, a.pipeline)
	a.profile = engine.NewProfileEngine(a.documents, a.pipeline)
	return a, nil
}

func (a *app) close() {
	a.events.Close()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) serve(addr string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.events.Start(ctx); err != nil {
		return err
	}

	b := bridge.New(a.sessions, a.events, a.profile)
	mux := http.NewServeMux()
	mux.Handle("/", b.Router())
	if local, ok := a.objects.(*assets.LocalObjectStore); ok {
		mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(local.Dir()))))
	}

	server := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("sozial bridge listening on %s (store=%s)", addr, a.cfg.StoreBackend)
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("shutting down on %v", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	}
}

func (a *app) signUp(opts docopt.Opts) error {
	ctx, cancel := opTimeout()
	defer cancel()

	email, _ := opts.String("<email>")
	password, _ := opts.String("<password>")

	ident, err := a.sessions.SignUp(ctx, email, password)
	if err != nil {
		return err
	}

	seed := models.ProfileSeed{
		Name: stringOpt(opts, "--name"),
		Age:  stringOpt(opts, "--age"),
		City: stringOpt(opts, "--city"),
	}
	if err := a.profile.Initialize(ctx, ident, seed); err != nil {
		return err
	}

	if err := a.cache.Save(ident); err != nil {
		return err
	}
	fmt.Printf("signed up as %s (uid %s)\n", ident.Email, ident.UID)
	return nil
}

func (a *app) login(opts docopt.Opts) error {
	ctx, cancel := opTimeout()
	defer cancel()

	email, _ := opts.String("<email>")
	password, _ := opts.String("<password>")

	ident, err := a.sessions.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	if err := a.cache.Save(ident); err != nil {
		return err
	}
	fmt.Printf("signed in as %s (uid %s)\n", ident.Email, ident.UID)
	return nil
}

func (a *app) logout() error {
	ctx, cancel := opTimeout()
	defer cancel()

	if err := a.sessions.SignOut(ctx); err != nil {
		return err
	}
	return a.cache.Clear()
}

func (a *app) listEvents() error {
	ctx, cancel := opTimeout()
	defer cancel()

	if err := a.events.Start(ctx); err != nil {
		return err
	}
	if err := a.waitLive(ctx); err != nil {
		return err
	}

	for _, ev := range a.events.Events() {
		image := ev.Image
		if image == "" {
			image = "-"
		}
		fmt.Printf("%s\t%s\tcapacity=%s\t%s\t%s\t%s\n", ev.ID, ev.Name, ev.Capacity, ev.Category, ev.Address, image)
	}
	return nil
}

func (a *app) createEvent(opts docopt.Opts) error {
	ctx, cancel := opTimeout()
	defer cancel()

	draft, err := eventDraftFromOpts(opts)
	if err != nil {
		return err
	}
	return a.events.Create(ctx, draft)
}

func (a *app) updateEvent(opts docopt.Opts) error {
	ctx, cancel := opTimeout()
	defer cancel()

	id, _ := opts.String("<id>")
	draft, err := eventDraftFromOpts(opts)
	if err != nil {
		return err
	}
	return a.events.Update(ctx, id, draft)
}

func (a *app) deleteEvent(opts docopt.Opts) error {
	ctx, cancel := opTimeout()
	defer cancel()

	id, _ := opts.String("<id>")
	return a.events.Delete(ctx, id)
}

func (a *app) showProfile() error {
	ctx, cancel := opTimeout()
	defer cancel()

	ident, err := a.cachedIdentity(ctx)
	if err != nil {
		return err
	}

	profile, err := a.profile.Load(ctx, ident)
	if err != nil {
		return err
	}

	fmt.Printf("name:  %s\nage:   %s\ncity:  %s\nbio:   %s\nemail: %s\n", profile.Name, profile.Age, profile.City, profile.Bio, profile.Email)
	if profile.ProfileImage != "" {
		fmt.Printf("image: %s\n", profile.ProfileImage)
	}
	return nil
}

func (a *app) saveProfile(opts docopt.Opts) error {
	ctx, cancel := opTimeout()
	defer cancel()

	ident, err := a.cachedIdentity(ctx)
	if err != nil {
		return err
	}

	image, err := imageFromOpts(opts)
	if err != nil {
		return err
	}

	draft := models.ProfileDraft{
		Name:  stringOpt(opts, "--name"),
		Age:   stringOpt(opts, "--age"),
		City:  stringOpt(opts, "--city"),
		Bio:   stringOpt(opts, "--bio"),
		Image: image,
	}
	return a.profile.Save(ctx, ident, draft)
}

// cachedIdentity restores the identity saved by a previous login, refreshing
// Firebase tokens when stale.
func (a *app) cachedIdentity(ctx context.Context) (*session.Identity, error) {
	if ident := a.sessions.Current(); ident != nil {
		return ident, nil
	}

	ident, err := a.cache.Load()
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, &session.AuthError{Reason: "not signed in; run sozial login first"}
	}

	if fb, ok := a.sessions.(*session.FirebaseProvider); ok {
		if err := fb.Restore(ctx, ident); err != nil {
			return nil, err
		}
		refreshed := fb.Current()
		if refreshed != nil {
			if err := a.cache.Save(refreshed); err != nil {
				return nil, err
			}
			return refreshed, nil
		}
	}
	return ident, nil
}

func (a *app) waitLive(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		switch a.events.State() {
		case engine.StateLive:
			return nil
		case engine.StateError:
			return a.events.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func eventDraftFromOpts(opts docopt.Opts) (models.EventDraft, error) {
	image, err := imageFromOpts(opts)
	if err != nil {
		return models.EventDraft{}, err
	}
	return models.EventDraft{
		Name:        stringOpt(opts, "--name"),
		Capacity:    stringOpt(opts, "--capacity"),
		Description: stringOpt(opts, "--description"),
		Address:     stringOpt(opts, "--address"),
		Category:    stringOpt(opts, "--category"),
		Image:       image,
	}, nil
}

func imageFromOpts(opts docopt.Opts) (models.ImageRef, error) {
	path := stringOpt(opts, "--image")
	if path == "" {
		return models.NoImage(), nil
	}
	return assets.FromFile(path)
}

func boolOpt(opts docopt.Opts, key string) bool {
	v, _ := opts.Bool(key)
	return v
}

func stringOpt(opts docopt.Opts, key string) string {
	v, _ := opts.String(key)
	return v
}

func opTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
