package pass

import (
	"context"
	"encoding/csv"
	"io"

	"hostelpass.org/internal/directory"
	"hostelpass.org/internal/enrich"
)

var exportHeader = []string{
	"ID", "Date Created", "Student Name", "Branch", "Room", "Type",
	"Destination", "Departure", "Return", "Reason", "Status", "Risk Level",
}

// ExportCSV writes the full pass collection as CSV, one row per pass. Zero
// passes yield exactly the header row. Branch comes from the identity
// directory; the risk level comes out of the stored annotation, N/A when the
// annotation is absent or undecodable.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	all, err := s.List(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, p := range all {
		risk := "N/A"
		if p.RiskAnnotation != "" {
			if a, err := enrich.DecodeAnnotation(p.RiskAnnotation); err == nil && a.Risk != "" {
				risk = a.Risk
			}
		}
		row := []string{
			p.ID,
			p.CreatedAt.Format("2006-01-02"),
			p.RequesterName,
			directory.Branch(p.RequesterID),
			p.RoomNumber,
			string(p.Kind),
			p.Destination,
			p.DepartureAt.Format("2006-01-02 15:04"),
			p.ReturnAt.Format("2006-01-02 15:04"),
			p.Reason,
			string(p.Status),
			risk,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
