package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/cobra"

	"github.com/wonny/waveger/backend/internal/contracts"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate fake users and predictions for the open contest",
	Long: `Creates fake users and fills the open contest with random predictions,
up to the per-user limit. Reruns top users up without exceeding it.

Example:
  go run ./cmd/waveger seed
  go run ./cmd/waveger seed --users 50 --seed 42`,
	RunE: runSeed,
}

var (
	seedUsers int
	seedValue uint64
)

type sampleSong struct {
	Name   string
	Artist string
}

var sampleSongs = []sampleSong{
	{"Midnight Rain", "Taylor Swift"},
	{"Die With A Smile", "Lady Gaga & Bruno Mars"},
	{"Birds of a Feather", "Billie Eilish"},
	{"Stick Season", "Noah Kahan"},
	{"Espresso", "Sabrina Carpenter"},
	{"Paint The Town Red", "Doja Cat"},
	{"Snooze", "SZA"},
	{"Greedy", "Tate McRae"},
	{"Good Luck, Babe!", "Chappell Roan"},
	{"We Can't Be Friends", "Ariana Grande"},
	{"Fortnight", "Taylor Swift"},
	{"Not Like Us", "Kendrick Lamar"},
	{"A Bar Song (Tipsy)", "Shaboozey"},
	{"Please Please Please", "Sabrina Carpenter"},
	{"Cruel Summer", "Taylor Swift"},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().IntVar(&seedUsers, "users", 10, "number of fake users")
	seedCmd.Flags().Uint64Var(&seedValue, "seed", 0, "random seed (0 = random)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	faker := gofakeit.New(seedValue)

	c, _, err := a.contests.EnsureOpen(ctx)
	if err != nil {
		return fmt.Errorf("open contest: %w", err)
	}
	charts := a.rules.ChartIDs()
	perUser := a.rules.Contest.MaxPredictionsPerUser

	created := 0
	for i := 0; i < seedUsers; i++ {
		username := strings.ToLower(faker.Username())
		uid, err := a.users.Create(ctx, username, faker.Email())
		if err != nil {
			return err
		}

		have, err := a.predictionRepo.CountForUser(ctx, uid, c.ID)
		if err != nil {
			return err
		}
		for n := have; n < perUser; n++ {
			song := sampleSongs[faker.IntN(len(sampleSongs))]
			sub := contracts.Submission{
				UserID:     uid,
				ContestID:  c.ID,
				ChartID:    charts[faker.IntN(len(charts))],
				Type:       contracts.PredictionTypes[faker.IntN(len(contracts.PredictionTypes))],
				SongName:   song.Name,
				ArtistName: song.Artist,
			}
			switch sub.Type {
			case contracts.PredictionEntry:
				v := faker.IntRange(1, 100)
				sub.Value = &v
			case contracts.PredictionPositionChange:
				v := faker.IntRange(-50, 50)
				sub.Value = &v
			}

			if _, err := a.predictions.Submit(ctx, sub); err != nil {
				var verr *contracts.ValidationError
				if errors.As(err, &verr) {
					a.log.WithError(err).Warn("Seed prediction rejected")
					continue
				}
				return err
			}
			created++
		}
	}

	fmt.Printf("✅ Seeded %d users, %d predictions into contest #%d\n", seedUsers, created, c.ID)
	return nil
}
