package cmd

import (
	"context"
	"fmt"

	"github.com/jmehdipour/voidview/internal/logger"
	"github.com/jmehdipour/voidview/internal/model"
	"github.com/jmehdipour/voidview/internal/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the storage with demo customers, apps and templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStorage(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		logger.Log.Info("seeding demo entities", zap.String("dir", st.backend.Dir()))
		s := seeder{
			customers: repository.NewCustomersRepository(st.backend),
			apps:      repository.NewAppsRepository(st.backend),
			templates: repository.NewTemplatesRepository(st.backend),
		}
		if err := s.run(cmd.Context(), demoEntities); err != nil {
			return err
		}
		logger.Log.Info("seed completed")
		return nil
	},
}

type demoApp struct {
	name      string
	templates []string
}

type demoCustomer struct {
	name string
	apps []demoApp
}

// demoEntities is a deterministic customer/app/template tree.
var demoEntities = []demoCustomer{
	{name: "Acme", apps: []demoApp{
		{name: "Player", templates: []string{"hd5", "uhd"}},
		{name: "Live", templates: []string{"ld", "sd"}},
	}},
	{name: "Foobar Media", apps: []demoApp{
		{name: "VOD", templates: []string{"hd5", "hdr10"}},
	}},
	{name: "Beta Streams", apps: []demoApp{
		{name: "Shorts", templates: []string{"sd"}},
	}},
}

type seeder struct {
	customers repository.CustomersRepository
	apps      repository.AppsRepository
	templates repository.TemplatesRepository
}

// run inserts whatever part of tree is missing (idempotent by name).
func (s seeder) run(ctx context.Context, tree []demoCustomer) error {
	for _, dc := range tree {
		cu, err := s.customers.GetByName(ctx, dc.name)
		if err != nil {
			return err
		}
		if cu == nil {
			if cu, err = s.customers.Create(ctx, model.NewCustomer{Name: dc.name}); err != nil {
				return fmt.Errorf("create customer %q: %w", dc.name, err)
			}
		}
		for _, da := range dc.apps {
			a, err := s.apps.GetByName(ctx, cu.ID, da.name)
			if err != nil {
				return err
			}
			if a == nil {
				if a, err = s.apps.Create(ctx, model.NewApp{CustomerID: cu.ID, Name: da.name}); err != nil {
					return fmt.Errorf("create app %q: %w", da.name, err)
				}
			}
			for _, tplName := range da.templates {
				tp, err := s.templates.GetByName(ctx, a.ID, tplName)
				if err != nil {
					return err
				}
				if tp != nil {
					continue
				}
				if _, err := s.templates.Create(ctx, model.NewTemplate{AppID: a.ID, Name: tplName}); err != nil {
					return fmt.Errorf("create template %q: %w", tplName, err)
				}
			}
		}
	}
	return nil
}
