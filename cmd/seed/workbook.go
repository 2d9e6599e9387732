package main

import (
	"fmt"
	"strings"

	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/xuri/excelize/v2"
)

const (
	ddoSheet   = "DDO"
	staffSheet = "Staff"
)

// readDDOMappings reads District | Sub Division | DDO Code | Treasury Code rows.
// Rows without a district or DDO code are skipped; duplicates keep the first row.
func readDDOMappings(f *excelize.File) ([]model.DDOMapping, int, error) {
	rows, err := f.GetRows(ddoSheet)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %s sheet: %w", ddoSheet, err)
	}

	var mappings []model.DDOMapping
	seen := make(map[string]bool)
	skipped := 0

	for i, row := range rows {
		if i == 0 {
			continue
		}
		district := cell(row, 0)
		subDivision := cell(row, 1)
		ddoCode := strings.ToUpper(cell(row, 2))
		if district == "" || ddoCode == "" {
			skipped++
			continue
		}

		key := strings.ToLower(district + "|" + subDivision)
		if seen[key] {
			skipped++
			continue
		}
		seen[key] = true

		mappings = append(mappings, model.DDOMapping{
			District:     district,
			SubDivision:  subDivision,
			DDOCode:      ddoCode,
			TreasuryCode: strings.ToUpper(cell(row, 3)),
		})
	}
	return mappings, skipped, nil
}

// readStaff reads Name | Email | Mobile | Role | District rows for department officers.
// Property owners are not imported.
func readStaff(f *excelize.File) ([]model.User, int, error) {
	rows, err := f.GetRows(staffSheet)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %s sheet: %w", staffSheet, err)
	}

	var users []model.User
	skipped := 0

	for i, row := range rows {
		if i == 0 {
			continue
		}
		role := model.Role(strings.ToLower(cell(row, 3)))
		user := model.User{
			Name:     cell(row, 0),
			Email:    strings.ToLower(cell(row, 1)),
			Mobile:   cell(row, 2),
			Role:     role,
			District: cell(row, 4),
		}

		switch {
		case user.Name == "" || user.Email == "":
			skipped++
			continue
		case !role.IsOfficer():
			skipped++
			continue
		case role.DistrictScoped() && user.District == "":
			skipped++
			continue
		}
		users = append(users, user)
	}
	return users, skipped, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
