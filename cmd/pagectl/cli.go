package main

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"pagecraft/app/internal/app/bootstrap"
	"pagecraft/app/internal/data/migrations"
	"pagecraft/app/internal/domain/publishing"
	"pagecraft/app/internal/platform/config"
)

// environment carries the collaborators shared by every command.
type environment struct {
	stores    *bootstrap.Stores
	hosts     *publishing.HostPolicy
	writer    *publishing.Writer
	analytics *publishing.Analytics
	logger    *logrus.Logger
	out       io.Writer
}

func buildEnvironment(cfg config.Config, stores *bootstrap.Stores, logger *logrus.Logger, out io.Writer) (*environment, error) {
	hosts, err := publishing.NewHostPolicy(cfg.DefaultHost, cfg.HostAliases...)
	if err != nil {
		return nil, eris.Wrap(err, "building host policy")
	}

	writer, err := publishing.NewWriter(publishing.WriterOptions{
		Repository: stores.Pages,
		Hosts:      hosts,
		Domains:    stores.Domains,
		Projects:   stores.Projects,
		Logger:     logger,
	})
	if err != nil {
		return nil, eris.Wrap(err, "creating writer")
	}

	analytics, err := publishing.NewAnalytics(publishing.AnalyticsOptions{
		Repository: stores.Pages,
		Counter:    stores.Visits,
		Recorder:   stores.Visits,
		Hosts:      hosts,
		Logger:     logger,
	})
	if err != nil {
		return nil, eris.Wrap(err, "creating analytics")
	}

	return &environment{
		stores:    stores,
		hosts:     hosts,
		writer:    writer,
		analytics: analytics,
		logger:    logger,
		out:       out,
	}, nil
}

func (e *environment) Close() error {
	return e.stores.Close()
}

// newCLIApp creates the admin application with all commands.
func newCLIApp(env *environment) *cli.App {
	app := &cli.App{
		Name:    "pagectl",
		Usage:   "Administer published pages and custom domains",
		Version: Version,
		Writer:  env.out,
		Commands: []*cli.Command{
			migrateCmd(env),
			pagesCmd(env),
			domainsCmd(env),
			statsCmd(env),
		},
	}
	// Errors are returned to run instead of exiting inside the app.
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

type pageView struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	ProjectID    string    `json:"projectId"`
	Slug         string    `json:"slug"`
	CustomDomain string    `json:"customDomain,omitempty"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type domainView struct {
	Domain     string     `json:"domain"`
	UserID     string     `json:"userId"`
	Verified   bool       `json:"verified"`
	CreatedAt  time.Time  `json:"createdAt"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
}

type statsView struct {
	PageID           string `json:"pageId,omitempty"`
	Pages            *int64 `json:"pages,omitempty"`
	VisitsTotal      int64  `json:"visitsTotal"`
	VisitsLast30Days int64  `json:"visitsLast30Days"`
}

func migrateCmd(env *environment) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply schema migrations",
		Action: func(c *cli.Context) error {
			if err := migrations.MigratePublishing(c.Context, env.stores.Database, env.logger); err != nil {
				return outputError(err)
			}
			return outputJSON(env.out, map[string]string{"status": "migrated"})
		},
	}
}

func pagesCmd(env *environment) *cli.Command {
	return &cli.Command{
		Name:  "pages",
		Usage: "Inspect and remove published pages",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List published pages",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Only pages owned by this user"},
				},
				Action: func(c *cli.Context) error {
					var (
						pages []publishing.Page
						err   error
					)
					if user := strings.TrimSpace(c.String("user")); user != "" {
						pages, err = env.stores.Pages.ListByUser(c.Context, user)
					} else {
						pages, err = env.stores.Pages.ListAll(c.Context)
					}
					if err != nil {
						return outputError(err)
					}

					views := make([]pageView, 0, len(pages))
					for _, page := range pages {
						views = append(views, env.pageView(c.Context, page))
					}
					return outputJSON(env.out, views)
				},
			},
			{
				Name:      "delete",
				Usage:     "Unpublish a page regardless of owner",
				ArgsUsage: "<page-id>",
				Action: func(c *cli.Context) error {
					id := strings.TrimSpace(c.Args().First())
					if id == "" {
						return outputError(eris.Wrap(publishing.ErrInvalidInput, "page id is required"))
					}

					page, err := env.stores.Pages.GetByID(c.Context, id)
					if err != nil {
						return outputError(err)
					}
					if page == nil {
						return outputError(eris.Wrapf(publishing.ErrNotFound, "page %s", id))
					}

					if err := env.stores.Pages.Delete(c.Context, page.ID); err != nil {
						return outputError(err)
					}
					if page.ProjectID != "" {
						if err := env.stores.Projects.ClearPublished(c.Context, page.UserID, page.ProjectID, page.ID); err != nil {
							env.logger.WithError(err).WithField("page_id", page.ID).Warn("clearing project publish marker")
						}
					}

					return outputJSON(env.out, map[string]string{"deleted": page.ID})
				},
			},
		},
	}
}

func domainsCmd(env *environment) *cli.Command {
	return &cli.Command{
		Name:  "domains",
		Usage: "Manage the custom domain registry",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List registered domains",
				Action: func(c *cli.Context) error {
					domains, err := env.stores.Domains.List(c.Context)
					if err != nil {
						return outputError(err)
					}

					views := make([]domainView, 0, len(domains))
					for _, d := range domains {
						views = append(views, toDomainView(d))
					}
					return outputJSON(env.out, views)
				},
			},
			{
				Name:      "add",
				Usage:     "Register a domain for a user",
				ArgsUsage: "<domain>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Required: true, Usage: "Owner of the domain"},
				},
				Action: func(c *cli.Context) error {
					name, err := env.domainArg(c)
					if err != nil {
						return outputError(err)
					}

					registered, err := env.stores.Domains.Register(c.Context, name, c.String("user"))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(env.out, toDomainView(*registered))
				},
			},
			{
				Name:      "verify",
				Usage:     "Mark a registered domain as verified",
				ArgsUsage: "<domain>",
				Action: func(c *cli.Context) error {
					name, err := env.domainArg(c)
					if err != nil {
						return outputError(err)
					}

					verified, err := env.stores.Domains.Verify(c.Context, name)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(env.out, toDomainView(*verified))
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove a domain from the registry",
				ArgsUsage: "<domain>",
				Action: func(c *cli.Context) error {
					name, err := env.domainArg(c)
					if err != nil {
						return outputError(err)
					}

					if err := env.stores.Domains.Remove(c.Context, name); err != nil {
						return outputError(err)
					}
					return outputJSON(env.out, map[string]string{"removed": name})
				},
			},
		},
	}
}

func statsCmd(env *environment) *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Show visit counts for one page, or the overview when no page is given",
		ArgsUsage: "[page-id]",
		Action: func(c *cli.Context) error {
			id := strings.TrimSpace(c.Args().First())
			if id == "" {
				overview, err := env.analytics.Overview(c.Context)
				if err != nil {
					return outputError(err)
				}
				pages := overview.Pages
				return outputJSON(env.out, statsView{
					Pages:            &pages,
					VisitsTotal:      overview.Visits.Total,
					VisitsLast30Days: overview.Visits.Last30Days,
				})
			}

			page, err := env.stores.Pages.GetByID(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			if page == nil {
				return outputError(eris.Wrapf(publishing.ErrNotFound, "page %s", id))
			}

			counts, err := env.analytics.PageStats(c.Context, page.UserID, page.ID)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(env.out, statsView{
				PageID:           page.ID,
				VisitsTotal:      counts.Total,
				VisitsLast30Days: counts.Last30Days,
			})
		},
	}
}

func (e *environment) pageView(ctx context.Context, page publishing.Page) pageView {
	return pageView{
		ID:           page.ID,
		UserID:       page.UserID,
		ProjectID:    page.ProjectID,
		Slug:         page.Slug,
		CustomDomain: page.CustomDomain,
		Title:        page.Title,
		URL:          e.writer.URLFor(ctx, page),
		UpdatedAt:    page.UpdatedAt,
	}
}

// domainArg canonicalises the first positional argument as a custom domain.
func (e *environment) domainArg(c *cli.Context) (string, error) {
	name, err := e.hosts.NormalizeDomain(c.Args().First())
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", eris.Wrap(publishing.ErrInvalidDomain, "domain argument is required")
	}
	return name, nil
}

func toDomainView(d publishing.Domain) domainView {
	return domainView{
		Domain:     d.Name,
		UserID:     d.UserID,
		Verified:   d.Verified,
		CreatedAt:  d.CreatedAt,
		VerifiedAt: d.VerifiedAt,
	}
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats err for the terminal, prefixing known failure kinds.
func outputError(err error) error {
	switch {
	case eris.Is(err, publishing.ErrNotFound):
		return cli.Exit("[not_found] "+err.Error(), 1)
	case eris.Is(err, publishing.ErrConflict):
		return cli.Exit("[conflict] "+err.Error(), 1)
	case eris.Is(err, publishing.ErrInvalidDomain), eris.Is(err, publishing.ErrInvalidInput):
		return cli.Exit("[invalid] "+err.Error(), 1)
	default:
		return cli.Exit(err.Error(), 1)
	}
}
