package table

import (
	"fmt"
	"strconv"
	"strings"

	"toggl-freee/internal/domain"
)

// Column names shared with the sheets users edit by hand.
const (
	ColTogglID           = "togglId"
	ColProjectID         = "projectId"
	ColProjectName       = "projectName"
	ColDate              = "date"
	ColMinutes           = "minutes"
	ColTagIDs            = "tagIds"
	ColTagNames          = "tagNames"
	ColDescription       = "description"
	ColFreeeProjectID    = "freeeProjectId"
	ColFreeeProjectName  = "freeeProjectName"
	ColFreeeTagGroupID   = "freeeTagGroupId"
	ColFreeeTagGroupName = "freeeTagGroupName"
	ColFreeeTagID        = "freeeTagId"
	ColFreeeTagName      = "freeeTagName"
	ColTogglProjectID    = "togglProjectId"
	ColTogglProjectName  = "togglProjectName"
	ColTogglTagID        = "togglTagId"
	ColTogglTagName      = "togglTagName"
)

var destinationHeader = []string{
	ColFreeeProjectID, ColFreeeProjectName,
	ColFreeeTagGroupID, ColFreeeTagGroupName,
	ColFreeeTagID, ColFreeeTagName,
}

// ReportHeader is the fixed header of the monthly report table.
var ReportHeader = append([]string{
	ColTogglID, ColProjectID, ColProjectName, ColDate, ColMinutes,
	ColTagIDs, ColTagNames, ColDescription,
}, destinationHeader...)

// TaxonomyHeader is the fixed header of the freee taxonomy export.
var TaxonomyHeader = append([]string(nil), destinationHeader...)

// CrossMapHeader lists the columns the mapping table must carry.
var CrossMapHeader = append([]string{ColTogglProjectID, ColTogglTagID}, destinationHeader...)

// SubmissionColumns lists the columns a workload submission table must carry.
var SubmissionColumns = []string{ColFreeeProjectID, ColDate, ColMinutes, ColDescription}

// EncodeReport renders report rows under ReportHeader.
func EncodeReport(rows []domain.FlatReportRow) Table {
	t := New(ReportHeader...)
	for _, r := range rows {
		cells := []string{
			formatInt(r.TogglID),
			formatInt(r.ProjectID),
			r.ProjectName,
			r.Date,
			strconv.Itoa(r.Minutes),
			r.TagIDs,
			r.TagNames,
			r.Description,
		}
		t.Append(append(cells, r.Destination.Columns()...)...)
	}
	return t
}

// EncodeTaxonomy renders taxonomy rows under TaxonomyHeader.
func EncodeTaxonomy(rows []domain.TaxonomyExportRow) Table {
	t := New(TaxonomyHeader...)
	for _, r := range rows {
		t.Append(
			formatInt(r.ProjectID),
			r.ProjectName,
			formatOptInt(r.TagGroupID),
			r.TagGroupName,
			formatOptInt(r.TagID),
			r.TagName,
		)
	}
	return t
}

// DecodeTaxonomy parses a table written by EncodeTaxonomy.
func DecodeTaxonomy(t Table) ([]domain.TaxonomyExportRow, error) {
	if err := t.Require(TaxonomyHeader...); err != nil {
		return nil, err
	}
	recs := t.Records()
	out := make([]domain.TaxonomyExportRow, 0, len(recs))
	for _, rec := range recs {
		projectID, err := rec.Int(ColFreeeProjectID)
		if err != nil {
			return nil, err
		}
		groupID, err := rec.OptInt(ColFreeeTagGroupID)
		if err != nil {
			return nil, err
		}
		tagID, err := rec.OptInt(ColFreeeTagID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.TaxonomyExportRow{
			ProjectID:    projectID,
			ProjectName:  rec.Get(ColFreeeProjectName),
			TagGroupID:   groupID,
			TagGroupName: rec.Get(ColFreeeTagGroupName),
			TagID:        tagID,
			TagName:      rec.Get(ColFreeeTagName),
		})
	}
	return out, nil
}

// DecodeCrossMap parses the mapping table. An empty togglTagId marks the
// project's wildcard row. freeeProjectId is required; freeeTagGroupId and
// freeeTagId are integers given together or not at all.
func DecodeCrossMap(t Table) ([]domain.CrossMapEntry, error) {
	if err := t.Require(CrossMapHeader...); err != nil {
		return nil, err
	}
	recs := t.Records()
	out := make([]domain.CrossMapEntry, 0, len(recs))
	for _, rec := range recs {
		projectID, err := rec.Int(ColTogglProjectID)
		if err != nil {
			return nil, err
		}
		tagID, err := rec.OptInt(ColTogglTagID)
		if err != nil {
			return nil, err
		}
		if _, err := rec.Int(ColFreeeProjectID); err != nil {
			return nil, err
		}
		groupID, err := rec.OptInt(ColFreeeTagGroupID)
		if err != nil {
			return nil, err
		}
		destTagID, err := rec.OptInt(ColFreeeTagID)
		if err != nil {
			return nil, err
		}
		if (groupID == nil) != (destTagID == nil) {
			return nil, fmt.Errorf("row %d: %s and %s: %w: fill both or neither",
				rec.Row, ColFreeeTagGroupID, ColFreeeTagID, ErrInvalidValue)
		}
		out = append(out, domain.CrossMapEntry{
			SourceProjectID: projectID,
			SourceTagID:     tagID,
			Destination: domain.Destination{
				ProjectID:    rec.Get(ColFreeeProjectID),
				ProjectName:  rec.Get(ColFreeeProjectName),
				TagGroupID:   rec.Get(ColFreeeTagGroupID),
				TagGroupName: rec.Get(ColFreeeTagGroupName),
				TagID:        rec.Get(ColFreeeTagID),
				TagName:      rec.Get(ColFreeeTagName),
			},
		})
	}
	return out, nil
}

// Int parses col as a required integer.
func (r Record) Int(col string) (int64, error) {
	v := r.Get(col)
	if v == "" {
		return 0, fmt.Errorf("row %d: %s: %w: empty", r.Row, col, ErrInvalidValue)
	}
	n, err := parseInt(v)
	if err != nil {
		return 0, fmt.Errorf("row %d: %s: %w: %q", r.Row, col, ErrInvalidValue, v)
	}
	return n, nil
}

// OptInt parses col as an optional integer; empty yields nil.
func (r Record) OptInt(col string) (*int64, error) {
	if r.Get(col) == "" {
		return nil, nil
	}
	n, err := r.Int(col)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// parseInt accepts plain integers and the "123.0" form numeric sheet cells
// sometimes come back as.
func parseInt(v string) (int64, error) {
	v = strings.TrimSuffix(v, ".0")
	return strconv.ParseInt(v, 10, 64)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatOptInt(v *int64) string {
	if v == nil {
		return ""
	}
	return formatInt(*v)
}

// JoinIDs joins ids with ";" as the report's tagIds column does.
func JoinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = formatInt(id)
	}
	return strings.Join(parts, ";")
}
