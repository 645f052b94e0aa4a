package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"

	"github.com/maksline/lavka/internal/cart"
	"github.com/maksline/lavka/internal/catalog"
	"github.com/maksline/lavka/internal/checkout"
	"github.com/maksline/lavka/internal/config"
	"github.com/maksline/lavka/internal/engine"
	"github.com/maksline/lavka/internal/ledger"
	"github.com/maksline/lavka/internal/model"
	"github.com/maksline/lavka/internal/notify"
	"github.com/maksline/lavka/internal/referral"
	"github.com/maksline/lavka/internal/render"
	"github.com/maksline/lavka/internal/store"
	"github.com/maksline/lavka/internal/users"
)

// app is the fully wired storefront: the engine plus the resources the
// command needs to run and shut down.
type app struct {
	cfg        *config.Config
	eng        *engine.Engine
	store      *store.Store
	dispatcher *notify.Dispatcher
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// setupLogging configures the default slog handler.
func setupLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// defaultCategories is the catalog seeded on a first run against an empty
// database.
func defaultCategories() []model.Category {
	return []model.Category{
		{ID: 1, Name: "Digital services"},
		{ID: 2, Name: "Design"},
		{ID: 3, Name: "Content"},
	}
}

// buildApp opens the database and assembles the engine.
//
// Load failures degrade to empty state: a corrupt table is logged and the
// component starts empty rather than refusing to boot. Saves later overwrite
// whatever was unreadable.
func buildApp(opts *RootOptions, transport notify.Transport) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	slog.Info("opening database", "path", cfg.Store.Path)
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	categories, products, err := st.LoadCatalog()
	if err != nil {
		slog.Warn("catalog load failed, starting empty", "error", err)
		categories, products = nil, nil
	}
	userRows, transactions, err := st.LoadUsers()
	if err != nil {
		slog.Warn("user load failed, starting empty", "error", err)
		userRows, transactions = nil, nil
	}
	cartRows, err := st.LoadCarts()
	if err != nil {
		slog.Warn("cart load failed, starting empty", "error", err)
		cartRows = nil
	}
	orderRows, err := st.LoadPendingOrders()
	if err != nil {
		slog.Warn("pending-order load failed, starting empty", "error", err)
		orderRows = nil
	}

	cat := catalog.New(st)
	if len(categories) == 0 && len(products) == 0 {
		slog.Info("seeding default categories")
		categories = defaultCategories()
	}
	cat.Init(categories, products)

	carts := cart.New(cat, st)
	carts.Init(cartRows)

	orders := ledger.New(st)
	orders.Init(orderRows)

	ul := users.New(st)
	ul.Init(userRows, transactions)

	settings, found, err := st.LoadReferralSettings()
	if err != nil {
		slog.Warn("referral settings load failed, using configured defaults", "error", err)
		found = false
	}
	if !found {
		minPurchase, err := decimal.NewFromString(cfg.Referral.MinPurchaseAmount)
		if err != nil {
			slog.Warn("malformed referral.min_purchase_amount, using zero",
				"value", cfg.Referral.MinPurchaseAmount,
				"error", err,
			)
			minPurchase = decimal.Zero
		}
		settings = referral.Settings{
			Enabled:           cfg.Referral.Enabled,
			MinPurchaseAmount: minPurchase,
		}
	}
	refs := referral.New(ul, settings, st)

	ck := checkout.New(cat, carts, orders, cfg.Payment.Method)

	if transport == nil {
		transport = notify.NewLogTransport()
	}
	disp := notify.NewDispatcher(transport)

	eng := engine.New(engine.Config{
		Admins:    cfg.Admin.AdminMap(),
		ChannelID: cfg.Admin.ChannelID,
		Payment: render.PaymentDetails{
			Name:        cfg.Payment.Method,
			CardNumber:  cfg.Payment.CardNumber,
			PhoneNumber: cfg.Payment.PhoneNumber,
			Owner:       cfg.Payment.Owner,
		},
		SupportContact: cfg.Shop.SupportContact,
		PageSize:       cfg.Shop.PageSize,
	}, engine.Deps{
		Catalog:    cat,
		Carts:      carts,
		Checkout:   ck,
		Orders:     orders,
		Users:      ul,
		Referrals:  refs,
		Dispatcher: disp,
		Transport:  transport,
	})

	return &app{
		cfg:        cfg,
		eng:        eng,
		store:      st,
		dispatcher: disp,
	}, nil
}

// drainDispatcher delivers every queued notification and stops the
// dispatcher. One-shot commands call it before exiting so resolutions are
// not silently dropped.
func drainDispatcher(a *app) {
	a.dispatcher.Close()
	done := make(chan struct{})
	go func() {
		a.dispatcher.Run(context.Background())
		close(done)
	}()
	<-done
}

// cliAdminID picks the identity CLI commands act under: the first
// configured administrator.
func cliAdminID(cfg *config.Config) (int64, error) {
	if len(cfg.Admin.Admins) == 0 {
		return 0, NewExitError(ExitCommandError, "no administrators configured")
	}
	return cfg.Admin.Admins[0].ID, nil
}
