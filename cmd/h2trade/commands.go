package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/h2market/h2trade/internal/app"
	"github.com/h2market/h2trade/internal/core/domain"
	"github.com/h2market/h2trade/internal/core/ports"
	"github.com/h2market/h2trade/internal/core/service"
)

type command func(ctx context.Context, a *app.App, args []string) error

var commands = map[string]command{
	"login":     login,
	"register":  register,
	"logout":    logout,
	"whoami":    whoami,
	"listings":  listings,
	"listing":   listing,
	"list":      publish,
	"orders":    orders,
	"dashboard": dashboard,
	"bid":       bid,
}

var errUsage = errors.New("invalid arguments")

func login(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	identifier := fs.String("u", "", "username or email")
	password := fs.String("p", "", "password")
	fs.Parse(args)

	s, err := a.Session.Login(ctx, *identifier, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s.\n", s.Identity.Username)
	return nil
}

func register(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("u", "", "username")
	email := fs.String("e", "", "email")
	password := fs.String("p", "", "password")
	org := fs.String("org", "", "organization name")
	fs.Parse(args)

	s, err := a.Session.Register(ctx, ports.RegisterInput{
		Username:         *username,
		Email:            *email,
		Password:         *password,
		OrganizationName: *org,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Account %s created. You are logged in.\n", s.Identity.Username)
	return nil
}

func logout(ctx context.Context, a *app.App, _ []string) error {
	if err := a.Session.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

func whoami(_ context.Context, a *app.App, _ []string) error {
	s := a.Session.Current()
	if !s.Authenticated() {
		fmt.Println("Not logged in.")
		return nil
	}
	fmt.Printf("%s <%s> id=%d roles=%v\n", s.Identity.Username, s.Identity.Email, s.Identity.ID, s.Identity.Roles)
	if claims, ok := a.Session.Claims(); ok && !claims.ExpiresAt.IsZero() {
		state := "valid until"
		if claims.Expired(time.Now()) {
			state = "expired at"
		}
		fmt.Printf("credential %s %s\n", state, claims.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

func listings(ctx context.Context, a *app.App, _ []string) error {
	all, err := a.Market.Listings.GetAll(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("No active listings.")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSELLER\tQTY (kg)\tPRICE/kg\tREGION\tMETHOD\tSTATUS")
	for _, l := range all {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			l.ID, l.SellerUsername, l.QuantityKg.StringFixed(2), l.PricePerKg.StringFixed(2),
			l.LocationRegion, l.ProductionMethod, l.Status)
	}
	return tw.Flush()
}

func listing(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("listing", flag.ExitOnError)
	id := fs.Int64("id", 0, "listing id")
	fs.Parse(args)
	if *id <= 0 {
		fs.Usage()
		return errUsage
	}

	l, err := a.Market.Listings.GetByID(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Printf("Listing #%d by %s\n", l.ID, l.SellerUsername)
	fmt.Printf("  quantity   %s kg\n", l.QuantityKg.StringFixed(2))
	fmt.Printf("  price      %s per kg\n", l.PricePerKg.StringFixed(2))
	fmt.Printf("  region     %s\n", l.LocationRegion)
	fmt.Printf("  method     %s\n", l.ProductionMethod)
	if l.PurityPercentage.Valid {
		fmt.Printf("  purity     %s%%\n", l.PurityPercentage.Decimal.String())
	}
	if reason := l.ClosedReason(); reason != "" {
		fmt.Println(" ", reason)
	}
	return nil
}

func publish(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	var form service.ListingForm
	fs.StringVar(&form.Quantity, "qty", "", "quantity in kg")
	fs.StringVar(&form.Price, "price", "", "asking price per kg")
	fs.StringVar(&form.Region, "region", "", "location region")
	fs.StringVar(&form.Method, "method", "", "production method")
	fs.StringVar(&form.Purity, "purity", "", "purity percentage")
	fs.StringVar(&form.GHGIntensity, "ghg", "", "GHG intensity, kgCO2e per kg H2")
	fs.StringVar(&form.Feedstock, "feedstock", "", "feedstock")
	fs.StringVar(&form.EnergySource, "energy", "", "energy source")
	fs.StringVar(&form.DeliveryTerms, "terms", "", "delivery terms")
	fs.StringVar(&form.AvailableFrom, "from", "", "available from, YYYY-MM-DD")
	fs.Parse(args)

	l, err := a.NewListingPublisher().Publish(ctx, form)
	if err != nil {
		return err
	}
	fmt.Printf("Listing #%d published: %s kg at %s per kg.\n", l.ID, l.QuantityKg.StringFixed(2), l.PricePerKg.StringFixed(2))
	return nil
}

func orders(ctx context.Context, a *app.App, _ []string) error {
	mine, err := a.Market.Orders.GetMine(ctx)
	if err != nil {
		return err
	}
	printOrders(mine)
	return nil
}

func dashboard(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	refresh := fs.Bool("refresh", false, "refetch the profile")
	fs.Parse(args)

	d := a.Dashboard.Load(ctx, *refresh)
	if d.Profile != nil {
		fmt.Printf("%s (%s)\n", d.Profile.Username, d.Profile.Organization())
		fmt.Printf("member since %s\n\n", d.Profile.CreatedAt.Time.Format("2006-01-02"))
	} else {
		fmt.Fprintln(os.Stderr, "profile unavailable:", domain.Message(d.ProfileErr))
	}
	if d.OrdersErr == nil {
		printOrders(d.Orders)
	} else {
		fmt.Fprintln(os.Stderr, "orders unavailable:", domain.Message(d.OrdersErr))
	}
	return d.Err()
}

func bid(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("bid", flag.ExitOnError)
	id := fs.Int64("listing", 0, "listing id")
	qty := fs.String("qty", "", "quantity in kg")
	price := fs.String("price", "", "bid price per kg")
	fs.Parse(args)
	if *id <= 0 {
		fs.Usage()
		return errUsage
	}

	l, err := a.Market.Listings.GetByID(ctx, *id)
	if err != nil {
		return err
	}
	outcome, err := a.NewBidWorkflow().Submit(ctx, l, service.BidForm{Quantity: *qty, Price: *price})
	if err != nil {
		return err
	}
	fmt.Println(outcome.Summary())
	return nil
}

func printOrders(list []domain.Order) {
	if len(list) == 0 {
		fmt.Println("No orders yet.")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tLISTING\tQTY (kg)\tPRICE/kg\tSTATUS\tCREATED")
	for _, o := range list {
		listingID := "-"
		if o.ListingID != nil {
			listingID = fmt.Sprint(*o.ListingID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			o.ID, o.OrderType, listingID, o.QuantityKg.StringFixed(2), o.PricePerKg.StringFixed(2),
			o.Status, o.CreatedAt.Time.Format("2006-01-02 15:04"))
	}
	tw.Flush()
}
