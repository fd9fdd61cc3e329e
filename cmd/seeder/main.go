package main

import (
	"bufio"
	"context"
	"flag"
	"iter"
	"log/slog"
	"os"

	"github.com/communitywatch/communitywatch"
	"github.com/communitywatch/communitywatch/core"
	"github.com/communitywatch/communitywatch/ingestion"
)

type seedReport struct {
	category    core.Category
	description string
	lat, lng    float64
}

var reports = []seedReport{
	{core.CategoryPothole, "Deep pothole in the middle of the eastbound lane", 6.2650, 4.9250},
	{core.CategoryPothole, "Large pothole near the bus stop, cars swerving to avoid it", 6.2651, 4.9251},
	{core.CategoryPothole, "Pothole at the intersection keeps filling with rainwater", 6.2660, 4.9250},
	{core.CategoryPothole, "Cracked asphalt breaking into a pothole by the school gate", 6.2644, 4.9238},
	{core.CategoryStreetlight, "Streetlight flickering all night on the corner", 6.2648, 4.9255},
	{core.CategoryStreetlight, "Lamp post knocked over, wires exposed", 6.2662, 4.9243},
	{core.CategoryStreetlight, "Two streetlights out along the market road, very dark", 6.2671, 4.9260},
	{core.CategoryGraffiti, "Graffiti sprayed across the community hall wall", 6.2655, 4.9247},
	{core.CategoryGraffiti, "Fresh tags on the pedestrian bridge railing", 6.2668, 4.9252},
	{core.CategoryGraffiti, "Offensive graffiti on the playground fence", 6.2641, 4.9261},
	{core.CategoryLitter, "Overflowing bin attracting rats behind the market", 6.2657, 4.9244},
	{core.CategoryLitter, "Pile of construction rubble dumped on the verge", 6.2635, 4.9256},
	{core.CategoryLitter, "Plastic bottles scattered across the park entrance", 6.2663, 4.9239},
	{core.CategoryLitter, "Bags of household waste left at the street corner for a week", 6.2649, 4.9266},
	{core.CategoryOther, "Broken bench in the square, splintered wood", 6.2653, 4.9249},
	{core.CategoryOther, "Storm drain blocked, street floods after every rain", 6.2659, 4.9258},
	{core.CategoryOther, "Loose paving slabs outside the clinic entrance", 6.2645, 4.9245},
	{core.CategoryOther, "Abandoned car parked on the sidewalk for two weeks", 6.2666, 4.9248},
	{core.CategoryPothole, "Road surface collapsing near the drainage works", 6.2672, 4.9235},
	{core.CategoryStreetlight, "Street lamp stays on during the day, off at night", 6.2638, 4.9252},
	{core.CategoryGraffiti, "Paint defacing the new bus shelter panels", 6.2654, 4.9263},
	{core.CategoryLitter, "Glass shards near the children's play area", 6.2647, 4.9241},
	{core.CategoryOther, "Tree branch hanging over power lines after the storm", 6.2669, 4.9257},
	{core.CategoryPothole, "Series of small potholes forming along the cycle lane", 6.2642, 4.9268},
	{core.CategoryStreetlight, "Dim streetlight makes the crossing hard to see", 6.2661, 4.9246},
	{core.CategoryOther, "Manhole cover missing on the side street", 6.2656, 4.9254},
	{core.CategoryLitter, "Fly-tipped mattress and furniture by the canal path", 6.2633, 4.9248},
	{core.CategoryGraffiti, "Wall of the underpass completely covered in spray paint", 6.2664, 4.9265},
	{core.CategoryPothole, "Pothole opened up again after last month's patch job", 6.2652, 4.9250},
	{core.CategoryOther, "Faded zebra crossing markings outside the primary school", 6.2640, 4.9243},
}

var seedFileName = flag.String("src", "", "file of seed descriptions, one per line")

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// issuesFromFile returns an iterator over issues built from lines in a file.
// Each line becomes an uncategorized report at the neighborhood center; the
// intake pipeline's classifier assigns categories afterwards.
func issuesFromFile(filename string) (iter.Seq[*core.Issue], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(*core.Issue) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			issue := &core.Issue{
				Category:    core.CategoryOther,
				Description: scanner.Text(),
				Location:    core.Coordinates{Lat: 6.2650, Lng: 4.9250},
			}
			if !yield(issue) {
				return
			}
		}
	}, nil
}

// issuesFromReports returns an iterator over the built-in seed reports.
func issuesFromReports(seeds []seedReport) iter.Seq[*core.Issue] {
	return func(yield func(*core.Issue) bool) {
		for _, seed := range seeds {
			issue := &core.Issue{
				Category:    seed.category,
				Description: seed.description,
				Location:    core.Coordinates{Lat: seed.lat, Lng: seed.lng},
			}
			if !yield(issue) {
				return
			}
		}
	}
}

// reportBatched reads from a source iterator and files reports in batches.
func reportBatched(ctx context.Context, pipeline *ingestion.Pipeline, reporterID core.ID, source iter.Seq[*core.Issue], batchSize int) error {
	batch := make([]*core.Issue, 0, batchSize)

	for issue := range source {
		batch = append(batch, issue)
		if len(batch) == batchSize {
			if _, err := pipeline.Report(ctx, reporterID, batch, nil); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}

	// Process any remaining issues
	if len(batch) > 0 {
		if _, err := pipeline.Report(ctx, reporterID, batch, nil); err != nil {
			return err
		}
	}

	return nil
}

func main() {
	db, err := communitywatch.NewDatabase("./communitywatch_db")
	if err != nil {
		panic(err)
	}
	defer db.Close()

	pipeline, err := db.NewIntakePipeline()
	if err != nil {
		panic(err)
	}
	defer pipeline.Release()

	ctx := context.Background()

	// Seed a reporter to attribute the reports to
	users, err := db.UserRepository().AddUsers(ctx, &core.User{
		Username: "seed-reporter",
		Email:    "seed@example.com",
	})
	if err != nil {
		panic(err)
	}
	reporterID := users[0].Id

	// Determine source of seed data
	var source iter.Seq[*core.Issue]
	if seedFileName != nil && *seedFileName != "" {
		source, err = issuesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	} else {
		source = issuesFromReports(reports)
	}

	// Report in batches of 5
	if err := reportBatched(ctx, pipeline, reporterID, source, 5); err != nil {
		panic(err)
	}
}
