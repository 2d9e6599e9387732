package service

import (
	"strings"

	"github.com/ikkim/homestay-backend/internal/app/repository"
	"github.com/ikkim/homestay-backend/internal/app/workflow"
)

// DDODirectory resolves the disbursing office for a district
type DDODirectory interface {
	// Resolve returns the DDO code, or ok=false when no mapping exists
	Resolve(district, subDivision string) (code string, ok bool, err error)
}

type ddoDirectory struct {
	repo repository.DDORepository
}

func NewDDODirectory(repo repository.DDORepository) DDODirectory {
	return &ddoDirectory{repo: repo}
}

// Resolve prefers a sub-division specific mapping over the district default
func (d *ddoDirectory) Resolve(district, subDivision string) (string, bool, error) {
	mappings, err := d.repo.FindAll()
	if err != nil {
		return "", false, err
	}

	var districtDefault string
	for _, m := range mappings {
		if !workflow.DistrictMatches(m.District, district) {
			continue
		}
		if m.SubDivision == "" {
			if districtDefault == "" {
				districtDefault = m.DDOCode
			}
			continue
		}
		if subDivision != "" && strings.EqualFold(strings.TrimSpace(m.SubDivision), strings.TrimSpace(subDivision)) {
			return m.DDOCode, true, nil
		}
	}
	if districtDefault != "" {
		return districtDefault, true, nil
	}
	return "", false, nil
}
