package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/placetrack/placetrack/internal/core"
	"github.com/placetrack/placetrack/internal/core/store"
	"github.com/placetrack/placetrack/internal/observability"
)

// seedFixture is the YAML shape the seed command consumes.
type seedFixture struct {
	Students []core.Student `yaml:"students"`
	Drives   []core.Drive   `yaml:"drives"`
}

var seedCmd = &cobra.Command{
	Use:   "seed <fixture.yaml>",
	Short: "Load student and drive records from a YAML fixture",
	Long: `Load student and drive records from a YAML fixture into the store.

The fixture has two top-level lists, students and drives, using the
snake_case field names of the record types. Records that collide with an
existing email or roll number are skipped unless --strict is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().Bool("strict", false, "fail on the first conflicting record instead of skipping it")
}

func runSeed(cmd *cobra.Command, args []string) error {
	strict, err := cmd.Flags().GetBool("strict")
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}

	var fixture seedFixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return fmt.Errorf("parse fixture: %w", err)
	}
	if len(fixture.Students) == 0 && len(fixture.Drives) == 0 {
		return errors.New("fixture contains no students or drives")
	}

	ctx := cmd.Context()

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	var created, skipped int
	for i := range fixture.Students {
		student := fixture.Students[i]
		if err := db.CreateStudent(ctx, &student); err != nil {
			if errors.Is(err, store.ErrConflict) && !strict {
				skipped++
				observability.CLILogger.Debug("Skipping conflicting student",
					zap.String("email", student.Email),
					zap.String("roll_no", student.RollNo))
				continue
			}
			return fmt.Errorf("seed student %q: %w", student.Name, err)
		}
		created++
	}

	for i := range fixture.Drives {
		drive := fixture.Drives[i]
		if err := db.CreateDrive(ctx, &drive); err != nil {
			return fmt.Errorf("seed drive %q: %w", drive.CompanyName, err)
		}
		created++
	}

	fmt.Printf("Seeded %d records (%d skipped)\n", created, skipped)
	return nil
}
