package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/AlexTLDR/charter/internal/config"
	"github.com/AlexTLDR/charter/internal/database"
	"github.com/AlexTLDR/charter/internal/student"
)

// Imports the student directory from a CSV export with the columns
// netid,first_name,last_name,class_year,prospective,allow_rsvp.
func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s students.csv", os.Args[0])
	}

	_ = godotenv.Overload()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to open %s: %v", os.Args[1], err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6
	if _, err := r.Read(); err != nil {
		log.Fatalf("Failed to read header: %v", err)
	}

	ctx := context.Background()
	imported := 0
	failed := 0
	for line := 2; ; line++ {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Printf("Line %d: %v", line, err)
			failed++
			continue
		}

		rec, err := parseRecord(fields)
		if err != nil {
			log.Printf("Line %d: %v", line, err)
			failed++
			continue
		}

		if err := db.UpsertStudent(ctx, rec); err != nil {
			log.Printf("Line %d: %v", line, err)
			failed++
			continue
		}
		imported++
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Imported: %d\n", imported)
	fmt.Printf("  Failed: %d\n", failed)
}

func parseRecord(fields []string) (student.Record, error) {
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	rec := student.Record{
		NetID:     strings.ToLower(fields[0]),
		FirstName: fields[1],
		LastName:  fields[2],
	}
	if rec.NetID == "" {
		return rec, errors.New("netid is required")
	}

	var err error
	if fields[3] != "" {
		if rec.ClassYear, err = strconv.Atoi(fields[3]); err != nil {
			return rec, fmt.Errorf("invalid class_year %q: %w", fields[3], err)
		}
	}
	if rec.Prospective, err = parseBool(fields[4]); err != nil {
		return rec, fmt.Errorf("invalid prospective %q: %w", fields[4], err)
	}
	if rec.AllowRSVP, err = parseBool(fields[5]); err != nil {
		return rec, fmt.Errorf("invalid allow_rsvp %q: %w", fields[5], err)
	}
	if !rec.Prospective && rec.ClassYear == 0 {
		return rec, errors.New("members need a class_year")
	}
	return rec, nil
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}
