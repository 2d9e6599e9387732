package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ikkim/homestay-backend/config"
	"github.com/ikkim/homestay-backend/internal/app/repository"
	"github.com/ikkim/homestay-backend/internal/db"
	"github.com/ikkim/homestay-backend/pkg/util"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// Imports the DDO directory and department staff from a workbook with "DDO" and
// "Staff" sheets, then prints bearer tokens for the imported staff.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		log.Fatal("Failed to open XLSX:", err)
	}
	defer f.Close()

	mappings, skippedMappings, err := readDDOMappings(f)
	if err != nil {
		log.Fatal(err)
	}
	staff, skippedStaff, err := readStaff(f)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  DDO mappings: %d (skipped %d)\n", len(mappings), skippedMappings)
	fmt.Printf("  Staff: %d (skipped %d)\n", len(staff), skippedStaff)

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	// the directory is replaced wholesale so removed offices stop resolving
	if err := db.GetDB().Exec("DELETE FROM ddo_mappings").Error; err != nil {
		log.Fatal("Failed to clear DDO directory:", err)
	}
	ddoRepo := repository.NewDDORepository(db.GetDB())
	if err := ddoRepo.BulkCreate(mappings, 500); err != nil {
		log.Fatal("Failed to import DDO directory:", err)
	}

	userRepo := repository.NewUserRepository(db.GetDB())
	fmt.Println("\nStaff tokens:")
	for i := range staff {
		user, err := userRepo.FindByEmail(staff[i].Email)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = &staff[i]
			err = userRepo.Create(user)
		}
		if err != nil {
			log.Fatal("Failed to import staff:", err)
		}

		token, err := util.GenerateToken(user.ID, user.Email, string(user.Role), user.District, cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
		if err != nil {
			log.Fatal("Failed to issue token:", err)
		}
		fmt.Printf("  %-30s %-18s %s\n", user.Email, user.Role, token)
	}

	fmt.Println("\nImport completed successfully!")
}
