// Package services implements the sync endpoint's business logic: idempotent
// event ingest keyed by pair code, pair-code expiry, and aggregated shift
// state for viewers.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldops/shiftsync/internal/api"
	"github.com/fieldops/shiftsync/internal/common"
	"github.com/fieldops/shiftsync/internal/logging"
	"github.com/fieldops/shiftsync/internal/paircode"
	sc "github.com/fieldops/shiftsync/internal/server/config"
	"github.com/fieldops/shiftsync/internal/server/models"
	"github.com/fieldops/shiftsync/internal/server/repositories/shifts"
)

// URLSigner is the slice of Presigner the sync service needs; split out so
// handler tests can substitute a stub.
type URLSigner interface {
	PresignedPutURL(ctx context.Context, pairCode, photoID string) (string, string, error)
	PresignedGetURL(ctx context.Context, key string) (string, error)
}

// SyncService ingests device events and serves aggregated shift state.
//
// Ingest is idempotent: every mutating request carries a client-generated
// event id and the repository drops duplicates on conflict, so the agent's
// at-least-once delivery produces exactly-once effects here.
type SyncService struct {
	repo   shifts.Repository
	signer URLSigner
	config *sc.Config
	logger logging.Logger

	// now is a seam for expiry tests.
	now func() time.Time
}

// NewSyncService builds the service over the given repository and presigner.
func NewSyncService(repo shifts.Repository, signer URLSigner, config *sc.Config, logger logging.Logger) *SyncService {
	return &SyncService{
		repo:   repo,
		signer: signer,
		config: config,
		logger: logger.With("component", "sync_service"),
		now:    time.Now,
	}
}

// resolveShift normalizes code and loads the shift it names, without expiry
// checking. Ingest keeps accepting events for a known shift even late: the
// expiry window gates viewers, not the device's own queue catching up.
func (s *SyncService) resolveShift(ctx context.Context, code string) (*models.Shift, error) {
	normalized, err := paircode.Validate(code)
	if err != nil {
		return nil, err
	}
	return s.repo.GetShiftByPairCode(ctx, normalized)
}

// AcceptShiftStart records a new shift. Duplicate submissions (same shift
// id) are accepted and ignored.
func (s *SyncService) AcceptShiftStart(ctx context.Context, req *api.SyncShiftRequest) error {
	normalized, err := paircode.Validate(req.PairCode)
	if err != nil {
		return err
	}

	shift := &models.Shift{
		ID:        req.ShiftID,
		PairCode:  normalized,
		StaffName: req.StaffName,
		SiteName:  req.SiteName,
		StartedAt: req.StartTime,
	}
	if err := s.repo.CreateShift(ctx, shift); err != nil {
		return fmt.Errorf("failed to accept shift start: %w", err)
	}

	s.logger.Info(ctx, "shift registered", "shift", req.ShiftID, "pair_code", normalized)
	return nil
}

// AcceptLocation records one location event for the shift named by the pair
// code.
func (s *SyncService) AcceptLocation(ctx context.Context, req *api.SyncLocationRequest) error {
	shift, err := s.resolveShift(ctx, req.PairCode)
	if err != nil {
		return err
	}

	loc := &models.Location{
		EventID:    req.EventID,
		ShiftID:    shift.ID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Accuracy:   req.Accuracy,
		CapturedAt: req.Timestamp,
		Address:    req.Address,
	}
	if err := s.repo.AddLocation(ctx, loc); err != nil {
		return fmt.Errorf("failed to accept location: %w", err)
	}
	return nil
}

// UploadURL serves the first leg of the two-step photo upload.
func (s *SyncService) UploadURL(ctx context.Context, req *api.UploadURLRequest) (*api.UploadURLResponse, error) {
	shift, err := s.resolveShift(ctx, req.PairCode)
	if err != nil {
		return nil, err
	}

	key, url, err := s.signer.PresignedPutURL(ctx, shift.PairCode, req.PhotoID)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}
	return &api.UploadURLResponse{Key: key, URL: url}, nil
}

// AcceptPhoto records photo metadata after the binary has been uploaded.
func (s *SyncService) AcceptPhoto(ctx context.Context, req *api.SyncPhotoRequest) error {
	shift, err := s.resolveShift(ctx, req.PairCode)
	if err != nil {
		return err
	}

	photo := &models.Photo{
		ID:         req.PhotoID,
		EventID:    req.EventID,
		ShiftID:    shift.ID,
		StorageKey: req.StorageKey,
		CapturedAt: req.Timestamp,
		Note:       req.Note,
	}
	if loc := req.Location; loc != nil {
		photo.Latitude = &loc.Latitude
		photo.Longitude = &loc.Longitude
		photo.Accuracy = loc.Accuracy
		photo.Address = loc.Address
	}
	if err := s.repo.AddPhoto(ctx, photo); err != nil {
		return fmt.Errorf("failed to accept photo: %w", err)
	}
	return nil
}

// AcceptNote records one note event.
func (s *SyncService) AcceptNote(ctx context.Context, req *api.SyncNoteRequest) error {
	shift, err := s.resolveShift(ctx, req.PairCode)
	if err != nil {
		return err
	}

	note := &models.Note{
		ID:        req.NoteID,
		EventID:   req.EventID,
		ShiftID:   shift.ID,
		Body:      req.Text,
		CreatedAt: req.Timestamp,
	}
	if loc := req.Location; loc != nil {
		note.Latitude = &loc.Latitude
		note.Longitude = &loc.Longitude
		note.Accuracy = loc.Accuracy
		note.Address = loc.Address
	}
	if err := s.repo.AddNote(ctx, note); err != nil {
		return fmt.Errorf("failed to accept note: %w", err)
	}
	return nil
}

// AcceptShiftEnd closes the shift. The first accepted end time wins.
func (s *SyncService) AcceptShiftEnd(ctx context.Context, req *api.SyncShiftEndRequest) error {
	shift, err := s.resolveShift(ctx, req.PairCode)
	if err != nil {
		return err
	}

	if err := s.repo.EndShift(ctx, shift.PairCode, req.EndTime); err != nil {
		return fmt.Errorf("failed to accept shift end: %w", err)
	}

	s.logger.Info(ctx, "shift closed", "shift", shift.ID)
	return nil
}

// ShiftState returns the aggregated state for a viewer. An expired pair code
// reports common.ErrNotFound: viewers must not be able to distinguish "never
// existed" from "no longer served".
func (s *SyncService) ShiftState(ctx context.Context, code string) (*api.ShiftStateResponse, error) {
	shift, err := s.resolveShift(ctx, code)
	if err != nil {
		return nil, err
	}

	if s.now().Sub(shift.CodeIssuedAt) > s.config.PairCodeTTL {
		s.logger.Info(ctx, "rejected expired pair code", "pair_code", shift.PairCode)
		return nil, common.ErrNotFound
	}

	locations, err := s.repo.ListLocations(ctx, shift.ID)
	if err != nil {
		return nil, err
	}
	photos, err := s.repo.ListPhotos(ctx, shift.ID)
	if err != nil {
		return nil, err
	}
	notes, err := s.repo.ListNotes(ctx, shift.ID)
	if err != nil {
		return nil, err
	}

	resp := &api.ShiftStateResponse{
		ShiftID:   shift.ID,
		PairCode:  shift.PairCode,
		StaffName: shift.StaffName,
		SiteName:  shift.SiteName,
		StartTime: shift.StartedAt,
		EndTime:   shift.EndedAt,
		Active:    shift.EndedAt == nil,
		Locations: make([]api.LocationFix, 0, len(locations)),
		Photos:    make([]api.PhotoState, 0, len(photos)),
		Notes:     make([]api.NoteState, 0, len(notes)),
	}

	for _, l := range locations {
		resp.Locations = append(resp.Locations, api.LocationFix{
			Latitude:  l.Latitude,
			Longitude: l.Longitude,
			Accuracy:  l.Accuracy,
			Timestamp: l.CapturedAt,
			Address:   l.Address,
		})
	}
	for _, p := range photos {
		url, err := s.signer.PresignedGetURL(ctx, p.StorageKey)
		if err != nil {
			// A broken link is worse than a missing one; skip and log.
			s.logger.Error(ctx, "failed to presign photo", "photo", p.ID, "error", err)
			continue
		}
		resp.Photos = append(resp.Photos, api.PhotoState{
			PhotoID:   p.ID,
			URL:       url,
			Timestamp: p.CapturedAt,
			Location:  fixFromParts(p.Latitude, p.Longitude, p.Accuracy, p.CapturedAt, p.Address),
			Note:      p.Note,
		})
	}
	for _, n := range notes {
		resp.Notes = append(resp.Notes, api.NoteState{
			NoteID:    n.ID,
			Text:      n.Body,
			Timestamp: n.CreatedAt,
			Location:  fixFromParts(n.Latitude, n.Longitude, n.Accuracy, n.CreatedAt, n.Address),
		})
	}
	return resp, nil
}

func fixFromParts(lat, lng, acc *float64, ts time.Time, address string) *api.LocationFix {
	if lat == nil || lng == nil {
		return nil
	}
	return &api.LocationFix{
		Latitude:  *lat,
		Longitude: *lng,
		Accuracy:  acc,
		Timestamp: ts,
		Address:   address,
	}
}
