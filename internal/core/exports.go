package core

import (
	"bytes"
	"context"
	"path"

	"uksledger/internal/blob"
	"uksledger/internal/sheets"
	"uksledger/pkg/domain"
)

// ExportSheet renders one flat table from the committed aggregate.
func (s *Service) ExportSheet(ctx context.Context, kind sheets.Kind, format sheets.Format) (sheets.Artifact, error) {
	var art sheets.Artifact
	err := s.run(ctx, "sheet.export", func() error {
		var err error
		art, err = sheets.Export(kind, format, s.store.Snapshot())
		return err
	})
	return art, err
}

// PublishExports writes every table as an xlsx workbook to the blob store
// under exports/<date>/<id>/. All tables are rendered from one snapshot.
func (s *Service) PublishExports(ctx context.Context) ([]blob.Info, error) {
	var infos []blob.Info
	err := s.run(ctx, "sheet.publish", func() error {
		if s.blobs == nil {
			return ErrNoBlobStore
		}
		snap := s.store.Snapshot()
		dir := path.Join("exports", s.clock.Now().Format(domain.ScreeningDateLayout), s.ids.NewID().String())
		for _, kind := range sheets.Kinds {
			art, err := sheets.Export(kind, sheets.FormatXLSX, snap)
			if err != nil {
				return err
			}
			info, err := s.blobs.Put(ctx, path.Join(dir, art.Filename), bytes.NewReader(art.Payload), blob.PutOptions{
				ContentType: art.ContentType,
				Metadata:    map[string]string{"kind": string(kind)},
			})
			if err != nil {
				return err
			}
			infos = append(infos, info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int("tables", len(infos)).Msg("exports published")
	return infos, nil
}
