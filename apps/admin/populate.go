package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Honeysuckle52/interior/core/space"
	"github.com/Honeysuckle52/interior/core/user"
)

var demoCities = []struct {
	region string
	code   string
	city   string
}{
	{"Central", "ce", "Metropolis"},
	{"Central", "ce", "Rivertown"},
	{"Northern", "no", "Lakeside"},
}

var demoCategories = []struct {
	name string
	icon string
}{
	{"Office", "briefcase"},
	{"Loft", "home"},
	{"Photo Studio", "camera"},
	{"Conference Hall", "users"},
}

var demoSpaces = []struct {
	title       string
	city        string
	category    string
	address     string
	areaSqm     string
	maxCapacity int
	featured    bool
	hourPrice   string
	dayPrice    string
	imageURL    string
}{
	{"Sunlit Loft on Main", "Metropolis", "Loft", "12 Main St", "85.50", 20, true, "25.00", "180.00", "https://images.interior.dev/loft-main.jpg"},
	{"Downtown Office Suite", "Metropolis", "Office", "3 Finance Ave", "120.00", 15, false, "30.00", "200.00", "https://images.interior.dev/office-suite.jpg"},
	{"Riverside Photo Studio", "Rivertown", "Photo Studio", "8 Quay Rd", "60.00", 8, true, "40.00", "280.00", "https://images.interior.dev/photo-studio.jpg"},
	{"Lakeside Conference Hall", "Lakeside", "Conference Hall", "1 Shore Blvd", "240.00", 80, false, "75.00", "520.00", "https://images.interior.dev/conference-hall.jpg"},
}

// populate seeds demo reference data and a handful of listed spaces so a
// fresh install has something to show.
func (cli *commandLine) populate() error {
	ctx := context.Background()

	cityIDs := make(map[string]string, len(demoCities))
	for _, dc := range demoCities {
		regionID, err := cli.ensureRegion(ctx, dc.region, dc.code)
		if err != nil {
			return err
		}
		cityID, err := cli.ensureCity(ctx, regionID, dc.city)
		if err != nil {
			return err
		}
		cityIDs[dc.city] = cityID
	}

	categoryIDs := make(map[string]string, len(demoCategories))
	for _, dc := range demoCategories {
		id, err := cli.ensureCategory(ctx, dc.name, dc.icon)
		if err != nil {
			return err
		}
		categoryIDs[dc.name] = id
	}

	owner, err := cli.ensureDemoHost(ctx)
	if err != nil {
		return err
	}

	periods, err := cli.spaceRepo.QueryPricingPeriods(ctx)
	if err != nil {
		return err
	}
	periodIDs := make(map[string]string, len(periods))
	for _, p := range periods {
		periodIDs[p.Name] = p.ID
	}

	now := time.Now().UTC()
	active := true
	for _, ds := range demoSpaces {
		slug := space.Slugify(ds.title)
		if _, err := cli.spaceRepo.GetSpace(ctx, space.GetFilter{Slug: slug}); err == nil {
			continue // already seeded
		} else if err != space.ErrNotFound {
			return err
		}

		areaSqm, err := decimal.NewFromString(ds.areaSqm)
		if err != nil {
			return err
		}
		sp, err := cli.spaceRepo.CreateSpace(ctx, space.Space{
			Title:       ds.title,
			Slug:        slug,
			Address:     ds.address,
			CityID:      cityIDs[ds.city],
			CategoryID:  categoryIDs[ds.category],
			AreaSqm:     areaSqm,
			MaxCapacity: ds.maxCapacity,
			Description: fmt.Sprintf("%s, available for rent by the hour or by the day.", ds.title),
			OwnerID:     owner.ID,
			IsActive:    &active,
			IsFeatured:  ds.featured,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return err
		}

		for period, price := range map[string]string{"hour": ds.hourPrice, "day": ds.dayPrice} {
			periodID, ok := periodIDs[period]
			if !ok {
				return fmt.Errorf("pricing period %q not found; run migrations first", period)
			}
			if _, err := cli.db.ExecContext(ctx, `
				INSERT INTO space_price (space_id, period_id, price, is_active)
				VALUES ($1, $2, $3, TRUE)`,
				sp.ID, periodID, price,
			); err != nil {
				return err
			}
		}
		if _, err := cli.db.ExecContext(ctx, `
			INSERT INTO space_image (space_id, url, alt_text, is_primary)
			VALUES ($1, $2, $3, TRUE)`,
			sp.ID, ds.imageURL, ds.title,
		); err != nil {
			return err
		}
		fmt.Printf("seeded space %q\n", ds.title)
	}
	return nil
}

func (cli *commandLine) ensureRegion(ctx context.Context, name, code string) (string, error) {
	var id string
	err := cli.db.QueryRowContext(ctx, `SELECT id FROM region WHERE name = $1`, name).Scan(&id)
	if err == sql.ErrNoRows {
		err = cli.db.QueryRowContext(ctx, `INSERT INTO region (name, code) VALUES ($1, $2) RETURNING id`, name, code).Scan(&id)
	}
	return id, err
}

func (cli *commandLine) ensureCity(ctx context.Context, regionID, name string) (string, error) {
	var id string
	err := cli.db.QueryRowContext(ctx, `SELECT id FROM city WHERE region_id = $1 AND name = $2`, regionID, name).Scan(&id)
	if err == sql.ErrNoRows {
		err = cli.db.QueryRowContext(ctx, `
			INSERT INTO city (region_id, name, is_active) VALUES ($1, $2, TRUE) RETURNING id`,
			regionID, name).Scan(&id)
	}
	return id, err
}

func (cli *commandLine) ensureCategory(ctx context.Context, name, icon string) (string, error) {
	slug := space.Slugify(name)
	var id string
	err := cli.db.QueryRowContext(ctx, `SELECT id FROM space_category WHERE slug = $1`, slug).Scan(&id)
	if err == sql.ErrNoRows {
		err = cli.db.QueryRowContext(ctx, `
			INSERT INTO space_category (name, slug, icon, is_active) VALUES ($1, $2, $3, TRUE) RETURNING id`,
			name, slug, icon).Scan(&id)
	}
	return id, err
}

func (cli *commandLine) ensureDemoHost(ctx context.Context) (user.User, error) {
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: "demohost"})
	if err == nil {
		return usr, nil
	}
	if err != user.ErrNotFound {
		return user.User{}, err
	}
	usr = user.User{
		Name:     "Demo Host",
		Username: "demohost",
		Email:    "demohost@interior.local",
	}
	usr.SetActive(true)
	if err := usr.SetPassword("demohost"); err != nil {
		return user.User{}, err
	}
	return cli.usrRepo.CreateUser(ctx, usr)
}
