// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package csvloader

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/catalogus/internal/database"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/metrics"
	"github.com/tomtom215/catalogus/internal/models"
	"github.com/tomtom215/catalogus/internal/upstream"
)

// API is the catalog REST surface the loader writes through.
type API interface {
	CreateCourse(ctx context.Context, body *models.CourseCreate) (*models.Course, error)
	UpdateCourse(ctx context.Context, uuid string, body *models.CourseUpdate) (*models.Course, error)
	UpdateCourseRun(ctx context.Context, key string, body *models.CourseRunUpdate) (*models.CourseRun, error)
}

var _ API = (*upstream.CatalogAPI)(nil)

// Store is the read side the loader validates rows against.
type Store interface {
	GetOrganizationByKey(ctx context.Context, partnerID int64, key string) (*models.Organization, error)
	GetCourseTypeByName(ctx context.Context, name string) (*models.CourseType, error)
	GetCourseRunTypeByName(ctx context.Context, name string) (*models.CourseRunType, error)
	GetCourseByKey(ctx context.Context, partnerID int64, key string) (*models.Course, error)
	LatestCourseRun(ctx context.Context, courseID int64) (*models.CourseRun, error)
	GetLanguageTagByName(ctx context.Context, name string) (*models.LanguageTag, error)
	GetOrCreatePerson(ctx context.Context, partnerID int64, givenName string) (*models.Person, bool, error)
	GetOrCreateCollaborator(ctx context.Context, name string) (*models.Collaborator, bool, error)
}

var _ Store = (*database.DB)(nil)

// ImageFetcher downloads the image referenced by the Image column.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

var _ ImageFetcher = (*upstream.Client)(nil)

// Config controls one ingest run.
type Config struct {
	CSVPath string
	// Resume skips rows recorded by an earlier run over the same file.
	Resume bool
	// DryRun validates rows without calling the API.
	DryRun bool
}

// Row outcomes, also used as metric labels.
const (
	outcomeSuccess = "success"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"
)

// errSkipRow marks a row rejected before any write.
var errSkipRow = errors.New("row skipped")

// Loader ingests one CSV file for one partner.
type Loader struct {
	partner  *models.Partner
	api      API
	store    Store
	cfg      Config
	progress ProgressTracker
	images   ImageFetcher

	data     []byte
	checksum string

	mu    sync.RWMutex
	stats *Stats
}

// Option configures a Loader.
type Option func(*Loader)

// WithProgress persists stats after every row.
func WithProgress(p ProgressTracker) Option {
	return func(l *Loader) { l.progress = p }
}

// WithImageFetcher sets the client used to download course images.
func WithImageFetcher(f ImageFetcher) Option {
	return func(l *Loader) { l.images = f }
}

// New reads the CSV file at cfg.CSVPath. A file that cannot be opened is
// logged and returned as an error.
func New(partner *models.Partner, api API, store Store, cfg Config, opts ...Option) (*Loader, error) {
	data, err := os.ReadFile(cfg.CSVPath)
	if err != nil {
		logging.Error().Err(err).Msgf("Error opening csv file at path %s", cfg.CSVPath)
		return nil, err
	}
	return NewFromData(partner, api, store, cfg, data, opts...), nil
}

// NewFromData loads an uploaded file. cfg.CSVPath names the upload for
// resume bookkeeping and is not opened.
func NewFromData(partner *models.Partner, api API, store Store, cfg Config, data []byte, opts ...Option) *Loader {
	sum := sha256.Sum256(data)
	l := &Loader{
		partner:  partner,
		api:      api,
		store:    store,
		cfg:      cfg,
		data:     data,
		checksum: hex.EncodeToString(sum[:]),
		stats:    &Stats{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Ingest processes every row of the file. Row failures are counted and
// logged; only a malformed file or a cancelled context stop the run.
func (l *Loader) Ingest(ctx context.Context) (*Stats, error) {
	logging.Info().Msg("Initiating CSV data loader flow.")

	headers, records, err := l.readRecords()
	if err != nil {
		return l.GetStats(), err
	}

	l.mu.Lock()
	l.stats = &Stats{
		Path:      l.cfg.CSVPath,
		Checksum:  l.checksum,
		TotalRows: int64(len(records)),
		StartTime: time.Now(),
		DryRun:    l.cfg.DryRun,
	}
	l.mu.Unlock()

	skipUntil := l.resumePoint(ctx)

	for i, record := range records {
		index := int64(i + 1)
		if index <= skipUntil {
			continue
		}
		if err := ctx.Err(); err != nil {
			l.finish()
			return l.GetStats(), err
		}

		created, err := l.processRow(ctx, newRow(index, headers, record))
		l.record(index, created, err)
		l.saveProgress(ctx)
	}

	l.finish()
	stats := l.GetStats()
	logging.Info().
		Int64("succeeded", stats.Succeeded).
		Int64("created", stats.Created).
		Int64("skipped", stats.Skipped).
		Int64("failed", stats.Failed).
		Dur("duration", stats.Duration()).
		Msg("CSV loader ingest pipeline has completed.")
	return stats, nil
}

// GetStats returns a copy of the current stats.
func (l *Loader) GetStats() *Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	stats := *l.stats
	return &stats
}

func (l *Loader) readRecords() ([]string, [][]string, error) {
	reader := csv.NewReader(bytes.NewReader(l.data))
	reader.FieldsPerRecord = -1
	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("csv file %s is empty", l.cfg.CSVPath)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv rows: %w", err)
	}
	return headers, records, nil
}

// resumePoint restores saved stats and returns the last row to skip.
func (l *Loader) resumePoint(ctx context.Context) int64 {
	if !l.cfg.Resume || l.progress == nil {
		return 0
	}
	prev, err := l.progress.Load(ctx, l.cfg.CSVPath)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to load CSV loader progress")
		return 0
	}
	if prev == nil {
		return 0
	}
	if prev.Checksum != l.checksum {
		logging.Warn().Str("path", l.cfg.CSVPath).Msg("CSV file changed since last run, starting from the first row")
		return 0
	}

	l.mu.Lock()
	l.stats.Processed = prev.Processed
	l.stats.Created = prev.Created
	l.stats.Succeeded = prev.Succeeded
	l.stats.Skipped = prev.Skipped
	l.stats.Failed = prev.Failed
	l.stats.LastRow = prev.LastRow
	l.mu.Unlock()

	logging.Info().Int64("last_row", prev.LastRow).Msg("Resuming CSV loader")
	return prev.LastRow
}

func (l *Loader) record(index int64, created bool, err error) {
	outcome := outcomeSuccess
	switch {
	case errors.Is(err, errSkipRow):
		outcome = outcomeSkipped
	case err != nil:
		outcome = outcomeFailed
	}
	metrics.RecordCSVRow(outcome)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats.Processed++
	l.stats.LastRow = index
	switch outcome {
	case outcomeSkipped:
		l.stats.Skipped++
	case outcomeFailed:
		l.stats.Failed++
	default:
		l.stats.Succeeded++
		if created {
			l.stats.Created++
		}
	}
}

func (l *Loader) saveProgress(ctx context.Context) {
	if l.progress == nil || l.cfg.DryRun {
		return
	}
	if err := l.progress.Save(ctx, l.GetStats()); err != nil {
		logging.Warn().Err(err).Msg("Failed to save CSV loader progress")
	}
}

func (l *Loader) finish() {
	l.mu.Lock()
	l.stats.EndTime = time.Now()
	l.mu.Unlock()
}

// processRow validates one row and writes its course and run. It reports
// whether the course was created.
func (l *Loader) processRow(ctx context.Context, r row) (bool, error) {
	title := r.get(ColTitle)
	orgKey := r.get(ColOrganization)

	if _, err := l.store.GetOrganizationByKey(ctx, l.partner.ID, orgKey); err != nil {
		logging.Error().Err(err).Int64("row", r.index).
			Msgf("Organization %s does not exist in database. Skipping CSV loader for course %s", orgKey, title)
		return false, errSkipRow
	}

	trackName := r.get(ColCourseEnrollmentTrack)
	courseType, err := l.store.GetCourseTypeByName(ctx, trackName)
	if err != nil {
		logging.Error().Err(err).Int64("row", r.index).Msgf("CourseType %s does not exist in the database.", trackName)
		return false, errSkipRow
	}

	runTrackName := r.get(ColCourseRunTrack)
	runType, err := l.store.GetCourseRunTypeByName(ctx, runTrackName)
	if err != nil {
		logging.Error().Err(err).Int64("row", r.index).Msgf("CourseRunType %s does not exist in the database.", runTrackName)
		return false, errSkipRow
	}

	created, err := l.upsertRow(ctx, r, courseType, runType)
	if err != nil {
		logging.Error().Err(err).Int64("row", r.index).Str("course", title).
			Msgf("An error occurred while loading course %s from the CSV", title)
		return false, err
	}
	return created, nil
}

func (l *Loader) upsertRow(ctx context.Context, r row, courseType *models.CourseType, runType *models.CourseRunType) (bool, error) {
	key := models.CourseKey(r.get(ColOrganization), r.get(ColNumber))

	course, err := l.store.GetCourseByKey(ctx, l.partner.ID, key)
	created := false
	switch {
	case errors.Is(err, database.ErrNotFound):
		logging.Info().Msgf("Course key %s could not be found in database, creating the course.", key)
		body, err := createCourseRequest(r, courseType, runType)
		if err != nil {
			return false, err
		}
		if l.cfg.DryRun {
			return true, nil
		}
		if _, err := l.api.CreateCourse(ctx, body); err != nil {
			return false, fmt.Errorf("create course %s: %w", key, err)
		}
		created = true
		if course, err = l.store.GetCourseByKey(ctx, l.partner.ID, key); err != nil {
			return false, fmt.Errorf("reload course %s: %w", key, err)
		}
	case err != nil:
		return false, fmt.Errorf("load course %s: %w", key, err)
	}

	runBody, err := l.updateCourseRunRequest(ctx, r, runType)
	if err != nil {
		return false, err
	}
	if l.cfg.DryRun {
		return false, nil
	}

	courseBody, err := l.updateCourseRequest(ctx, r, course)
	if err != nil {
		return false, err
	}
	if _, err := l.api.UpdateCourse(ctx, course.UUID.String(), courseBody); err != nil {
		return false, fmt.Errorf("update course %s: %w", key, err)
	}

	run, err := l.store.LatestCourseRun(ctx, course.ID)
	if err != nil {
		return false, fmt.Errorf("course %s has no course run: %w", key, err)
	}
	runBody.Key = run.Key
	if runBody.Staff, err = l.staff(ctx, r, run.Key); err != nil {
		return false, err
	}
	if _, err := l.api.UpdateCourseRun(ctx, run.Key, runBody); err != nil {
		return false, fmt.Errorf("update course run %s: %w", run.Key, err)
	}
	return created, nil
}

func rowPrices(r row) map[string]string {
	prices := map[string]string{}
	if price := r.get(ColVerifiedPrice); price != "" {
		prices[models.SeatVerified] = price
	}
	return prices
}

func createCourseRequest(r row, courseType *models.CourseType, runType *models.CourseRunType) (*models.CourseCreate, error) {
	start, err := r.dateTime(ColStartDate, ColStartTime)
	if err != nil {
		return nil, err
	}
	end, err := r.dateTime(ColEndDate, ColEndTime)
	if err != nil {
		return nil, err
	}
	prices := rowPrices(r)
	return &models.CourseCreate{
		Org:    r.get(ColOrganization),
		Title:  r.get(ColTitle),
		Number: r.get(ColNumber),
		Type:   courseType.UUID.String(),
		Prices: prices,
		CourseRun: &models.CourseRunCreate{
			PacingType: pacingType(r.get(ColCoursePacing)),
			Start:      start,
			End:        end,
			RunType:    runType.UUID.String(),
			Prices:     prices,
		},
	}, nil
}

func (l *Loader) updateCourseRequest(ctx context.Context, r row, course *models.Course) (*models.CourseUpdate, error) {
	subjects := []string{}
	for _, col := range []string{ColPrimarySubject, ColSecondarySubject, ColTertiarySubject} {
		if s := r.get(col); s != "" {
			subjects = append(subjects, s)
		}
	}

	collaborators := []string{}
	for _, name := range r.list(ColCollaborators) {
		c, created, err := l.store.GetOrCreateCollaborator(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("collaborator %s: %w", name, err)
		}
		if created {
			logging.Info().Msgf("Collaborator %s created for course %s", name, course.Key)
		}
		collaborators = append(collaborators, c.UUID.String())
	}

	body := &models.CourseUpdate{
		UUID:                  course.UUID.String(),
		Key:                   course.Key,
		URLSlug:               &course.URLSlug,
		Prices:                rowPrices(r),
		Subjects:              subjects,
		Collaborators:         collaborators,
		Title:                 r.str(ColTitle),
		SyllabusRaw:           r.str(ColSyllabus),
		LevelType:             r.str(ColCourseLevel),
		Outcome:               r.str(ColWhatWillYouLearn),
		FAQ:                   r.str(ColFAQ),
		Video:                 &models.Video{Src: r.get(ColAboutVideoLink)},
		PrerequisitesRaw:      r.str(ColPrerequisites),
		FullDescription:       r.str(ColLongDescription),
		ShortDescription:      r.str(ColShortDescription),
		LearnerTestimonials:   r.str(ColLearnerTestimonials),
		AdditionalInformation: r.str(ColAdditionalInformation),
	}
	if course.Type != nil {
		typeUUID := course.Type.UUID.String()
		body.Type = &typeUUID
	}
	if image := l.image(ctx, r.get(ColImage)); image != "" {
		body.Image = &image
	}
	return body, nil
}

// image turns an image URL into a base64 data URI. Data URIs pass through;
// anything else, or a failed download, yields "" and leaves the course image
// unchanged.
func (l *Loader) image(ctx context.Context, ref string) string {
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(ref, "data:"):
		return ref
	case !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://"):
		logging.Warn().Str("image", ref).Msg("Ignoring image that is neither a URL nor a data URI")
		return ""
	case l.images == nil:
		return ""
	}
	data, contentType, err := l.images.Fetch(ctx, ref)
	if err != nil {
		logging.Warn().Err(err).Str("image", ref).Msg("Failed to download course image")
		return ""
	}
	if !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func (l *Loader) updateCourseRunRequest(ctx context.Context, r row, runType *models.CourseRunType) (*models.CourseRunUpdate, error) {
	content, transcripts, err := l.languages(ctx, r)
	if err != nil {
		return nil, err
	}

	body := &models.CourseRunUpdate{
		Prices:              rowPrices(r),
		ContentLanguage:     &content,
		TranscriptLanguages: transcripts,
		ExpectedProgramName: r.str(ColExpectedProgramName),
	}
	runTypeUUID := runType.UUID.String()
	body.RunType = &runTypeUUID

	if body.WeeksToComplete, err = r.optionalInt(ColLength); err != nil {
		return nil, err
	}
	if body.MinEffort, err = r.optionalInt(ColMinimumEffort); err != nil {
		return nil, err
	}
	if body.MaxEffort, err = r.optionalInt(ColMaximumEffort); err != nil {
		return nil, err
	}
	if body.GoLiveDate, err = r.dateTime(ColPublishDate, ""); err != nil {
		return nil, err
	}
	if body.UpgradeDeadlineOverride, err = r.dateTime(ColUpgradeDeadlineDate, ColUpgradeDeadlineTime); err != nil {
		return nil, err
	}

	// Types the catalog does not know are sent as null.
	if kind, ok := models.ParseProgramTypeKind(r.get(ColExpectedProgramType)); ok {
		programType := string(kind)
		body.ExpectedProgramType = &programType
	} else {
		body.ClearExpectedProgramType = true
	}

	draft := false
	body.Draft = &draft
	return body, nil
}

// languages resolves the content and transcript language names to tag
// codes. Any unknown name fails the row.
func (l *Loader) languages(ctx context.Context, r row) (string, []string, error) {
	contentName := r.get(ColContentLanguage)
	transcriptNames := r.list(ColTranscriptLanguage)

	codes := map[string]string{}
	valid := true
	for _, name := range append([]string{contentName}, transcriptNames...) {
		if _, ok := codes[name]; ok {
			continue
		}
		tag, err := l.store.GetLanguageTagByName(ctx, name)
		if errors.Is(err, database.ErrNotFound) {
			valid = false
			continue
		}
		if err != nil {
			return "", nil, err
		}
		codes[name] = tag.Code
	}
	if !valid {
		return "", nil, fmt.Errorf("One or more languages are not valid ietf languages. "+
			"Content Language: %s Transcript Languages: %s", contentName, r.get(ColTranscriptLanguage))
	}

	transcripts := make([]string, 0, len(transcriptNames))
	for _, name := range transcriptNames {
		transcripts = append(transcripts, codes[name])
	}
	return codes[contentName], transcripts, nil
}

func (l *Loader) staff(ctx context.Context, r row, runKey string) ([]string, error) {
	ids := []string{}
	for _, name := range r.list(ColStaff) {
		person, created, err := l.store.GetOrCreatePerson(ctx, l.partner.ID, name)
		if err != nil {
			return nil, fmt.Errorf("staff %s: %w", name, err)
		}
		if created {
			logging.Info().Msgf("Staff with name %s has been created for course run %s", name, runKey)
		}
		ids = append(ids, person.UUID.String())
	}
	return ids, nil
}
