package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/sakif/servicecard/internal/apperror"
	"github.com/sakif/servicecard/internal/clock"
	"github.com/sakif/servicecard/internal/export"
	"github.com/sakif/servicecard/internal/model"
	"github.com/sakif/servicecard/internal/patch"
	"github.com/sakif/servicecard/internal/render"
	"github.com/sakif/servicecard/internal/repository"
	"github.com/sakif/servicecard/internal/store"
)

// =========================================================================
// FAKES
// =========================================================================

// memoryRepo keeps the saved-cards record in memory.
type memoryRepo struct {
	mu      sync.Mutex
	rec     repository.SavedCardsRecord
	saveErr error
	saves   int
}

func (m *memoryRepo) LoadSavedCards(_ context.Context, _ string) (repository.SavedCardsRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec, nil
}

func (m *memoryRepo) SaveSavedCards(_ context.Context, _ string, seq int64, cards []model.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	if seq > m.rec.Seq {
		m.rec = repository.SavedCardsRecord{Cards: cards, Seq: seq}
	}
	return nil
}

func (m *memoryRepo) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *memoryRepo) stored() []model.Card {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec.Cards
}

// fakeExporter records the cards it was asked to export.
type fakeExporter struct {
	mu    sync.Mutex
	cards []model.Card
	err   error
}

func (f *fakeExporter) Export(_ context.Context, card model.Card) (*export.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !card.HasMeaningfulContent() {
		return nil, apperror.EmptyCard("export the card")
	}
	f.cards = append(f.cards, card)
	if f.err != nil {
		return nil, f.err
	}
	return &export.Image{Filename: export.Filename(card), Data: []byte("png"), Width: 800, Height: 600}, nil
}

var testNow = time.Date(2026, time.April, 2, 10, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fixture struct {
	svc      *CardService
	store    *store.Store
	repo     *memoryRepo
	exporter *fakeExporter
	clk      *clock.MockClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewMockClock(testNow)
	repo := &memoryRepo{}
	st := store.New(repo, "doggeSavedCards", clk, testLogger())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		st.Close(ctx)
	})
	exp := &fakeExporter{}
	return &fixture{
		svc:      NewCardService(st, render.New(clk), exp, testLogger()),
		store:    st,
		repo:     repo,
		exporter: exp,
		clk:      clk,
	}
}

func ctxT(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func assertValidation(t *testing.T, err error, field string) {
	t.Helper()
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error %v is not an *AppError", err)
	}
	if appErr.Field != field {
		t.Errorf("Field = %q, want %q (message %q)", appErr.Field, field, appErr.Message)
	}
}

// =========================================================================
// VALIDATION AT THE BOUNDARY
// =========================================================================

func TestUpdateService_NegativePriceRejectedBeforeStore(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.AddService(&ServiceInput{Name: patch.Ptr("Walk"), BasePrice: patch.Ptr(20)}); err != nil {
		t.Fatalf("AddService: %v", err)
	}
	before := f.store.Snapshot()
	id := before.Current.Services[0].ID

	_, err := f.svc.UpdateService(id, ServiceInput{BasePrice: patch.Ptr(-5)})

	assertValidation(t, err, "basePrice")
	after := f.store.Snapshot()
	if after.Version != before.Version {
		t.Errorf("store version moved from %d to %d", before.Version, after.Version)
	}
	if after.Current.Services[0].BasePrice != 20 {
		t.Errorf("BasePrice = %d, want unchanged 20", after.Current.Services[0].BasePrice)
	}
}

func TestValidation_Table(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		call  func() error
		field string
	}{
		{"year too low", func() error {
			_, err := f.svc.UpdateProviderInfo(ProviderInfoInput{Year: patch.Ptr(2019)})
			return err
		}, "year"},
		{"year too high", func() error {
			_, err := f.svc.UpdateProviderInfo(ProviderInfoInput{Year: patch.Ptr(2031)})
			return err
		}, "year"},
		{"negative additional pet price", func() error {
			_, err := f.svc.AddService(&ServiceInput{AdditionalPetPrice: patch.Ptr(-1)})
			return err
		}, "additionalPetPrice"},
		{"negative holiday charge", func() error {
			_, err := f.svc.UpdateHolidayRate(HolidayRateInput{AdditionalCharge: patch.Ptr(-10)})
			return err
		}, "additionalCharge"},
		{"bad color", func() error {
			_, err := f.svc.UpdateDesign(DesignInput{PrimaryColor: patch.Ptr("teal")})
			return err
		}, "primaryColor"},
		{"empty color", func() error {
			_, err := f.svc.UpdateDesign(DesignInput{AccentColor: patch.Ptr("")})
			return err
		}, "accentColor"},
		{"rating out of range", func() error {
			_, err := f.svc.AddTestimonial(&TestimonialInput{Text: "ok", Rating: 6})
			return err
		}, "rating"},
		{"unknown section", func() error {
			_, err := f.svc.UpdateSection("gallery", SectionInput{Enabled: patch.Ptr(true)})
			return err
		}, "section"},
		{"bad availability status", func() error {
			_, err := f.svc.UpdateSection("availability", SectionInput{Schedule: map[string]string{"Monday": "Maybe"}})
			return err
		}, "schedule[Monday]"},
		{"bad weekday", func() error {
			_, err := f.svc.UpdateSection("availability", SectionInput{Schedule: map[string]string{"Funday": "Available"}})
			return err
		}, "schedule[Funday]"},
		{"image without url", func() error {
			_, err := f.svc.UpdateSection("images", SectionInput{Images: []ImageInput{{Caption: "dog"}}})
			return err
		}, "images[0].url"},
		{"testimonial list rating", func() error {
			_, err := f.svc.UpdateSection("testimonials", SectionInput{Testimonials: []TestimonialInput{{Rating: 0}}})
			return err
		}, "testimonials[0].rating"},
		{"long footer", func() error {
			long := make([]byte, 201)
			for i := range long {
				long[i] = 'a'
			}
			_, err := f.svc.UpdateGeneralInclusions(TextInput{Text: string(long)})
			return err
		}, "text"},
		{"bad preview mode", func() error {
			_, err := f.svc.Preview("tiny")
			return err
		}, "mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.store.Snapshot().Version
			assertValidation(t, tt.call(), tt.field)
			if v := f.store.Snapshot().Version; v != before {
				t.Errorf("rejected input changed the store (version %d -> %d)", before, v)
			}
		})
	}
}

func TestValidation_AcceptsBoundaryValues(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.UpdateProviderInfo(ProviderInfoInput{Year: patch.Ptr(2020)}); err != nil {
		t.Errorf("year 2020: %v", err)
	}
	if _, err := f.svc.UpdateProviderInfo(ProviderInfoInput{Year: patch.Ptr(2030)}); err != nil {
		t.Errorf("year 2030: %v", err)
	}
	if _, err := f.svc.AddService(&ServiceInput{BasePrice: patch.Ptr(0)}); err != nil {
		t.Errorf("price 0: %v", err)
	}
	if _, err := f.svc.UpdateDesign(DesignInput{PrimaryColor: patch.Ptr("#abc")}); err != nil {
		t.Errorf("short hex color: %v", err)
	}
	if _, err := f.svc.UpdateProviderInfo(ProviderInfoInput{Name: patch.Ptr("")}); err != nil {
		t.Errorf("clearing the name: %v", err)
	}
}

// =========================================================================
// EDITING
// =========================================================================

func TestAddService_UsesTemplate(t *testing.T) {
	f := newFixture(t)

	st, err := f.svc.AddService(nil)
	if err != nil {
		t.Fatalf("AddService: %v", err)
	}
	st, err = f.svc.AddService(&ServiceInput{Name: patch.Ptr("Walk"), BasePrice: patch.Ptr(20)})
	if err != nil {
		t.Fatalf("AddService: %v", err)
	}

	tmpl, walk := st.Current.Services[0], st.Current.Services[1]
	if tmpl.Name != "NEW SERVICE" || tmpl.Icon != model.DefaultServiceIcon || tmpl.BasePrice != 0 {
		t.Errorf("template service = %+v", tmpl)
	}
	if walk.Name != "Walk" || walk.BasePrice != 20 || walk.Icon != model.DefaultServiceIcon {
		t.Errorf("service = %+v, want template with name and price set", walk)
	}
	if tmpl.ID == walk.ID {
		t.Error("services share an id")
	}
}

func TestUpdateAndRemoveService_UnknownID(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateService("nope", ServiceInput{Name: patch.Ptr("x")})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateService error = %v, want NotFound", err)
	}
	_, err = f.svc.RemoveService("nope")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("RemoveService error = %v, want NotFound", err)
	}
}

func TestHolidayDateHelpers(t *testing.T) {
	f := newFixture(t)

	f.svc.AddHolidayDate(HolidayDateInput{Date: " Dec 25 "})
	f.svc.AddHolidayDate(HolidayDateInput{Date: ""})
	st, _ := f.svc.AddHolidayDate(HolidayDateInput{Date: "Jan 1"})
	if got := st.Current.HolidayRate.Dates; len(got) != 2 || got[0] != "Dec 25" {
		t.Fatalf("Dates = %q", got)
	}

	if _, err := f.svc.EditHolidayDate(3, HolidayDateInput{Date: "x"}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("EditHolidayDate out of range error = %v", err)
	}
	st, err := f.svc.EditHolidayDate(1, HolidayDateInput{Date: "Jan 1 - Jan 2"})
	if err != nil || st.Current.HolidayRate.Dates[1] != "Jan 1 - Jan 2" {
		t.Errorf("EditHolidayDate = %q, %v", st.Current.HolidayRate.Dates, err)
	}
	st, err = f.svc.RemoveHolidayDate(0)
	if err != nil || len(st.Current.HolidayRate.Dates) != 1 {
		t.Errorf("RemoveHolidayDate = %q, %v", st.Current.HolidayRate.Dates, err)
	}
}

func TestTestimonialHelpers(t *testing.T) {
	f := newFixture(t)

	st, err := f.svc.AddTestimonial(nil)
	if err != nil {
		t.Fatalf("AddTestimonial: %v", err)
	}
	added := st.Current.OptionalSections.Testimonials.Items[0]
	if added.ID == "" || added.Rating != DefaultTestimonialRating {
		t.Errorf("blank testimonial = %+v, want id and 5 stars", added)
	}

	st, err = f.svc.UpdateTestimonial(added.ID, TestimonialPatchInput{Text: patch.Ptr("Lovely"), Rating: patch.Ptr(4)})
	if err != nil {
		t.Fatalf("UpdateTestimonial: %v", err)
	}
	if got := st.Current.OptionalSections.Testimonials.Items[0]; got.Text != "Lovely" || got.Rating != 4 {
		t.Errorf("testimonial = %+v", got)
	}

	if _, err := f.svc.UpdateTestimonial("nope", TestimonialPatchInput{}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateTestimonial unknown id error = %v", err)
	}
	st, err = f.svc.RemoveTestimonial(added.ID)
	if err != nil || len(st.Current.OptionalSections.Testimonials.Items) != 0 {
		t.Errorf("RemoveTestimonial left %d items, err %v", len(st.Current.OptionalSections.Testimonials.Items), err)
	}
}

func TestUpdateSection_AssignsItemIDs(t *testing.T) {
	f := newFixture(t)

	st, err := f.svc.UpdateSection("images", SectionInput{
		Enabled: patch.Ptr(true),
		Images:  []ImageInput{{URL: "https://example.com/dog.jpg", Caption: "Rex"}},
	})
	if err != nil {
		t.Fatalf("UpdateSection: %v", err)
	}
	img := st.Current.OptionalSections.Images
	if !img.Enabled || len(img.Items) != 1 || img.Items[0].ID == "" {
		t.Errorf("images section = %+v", img)
	}

	st, err = f.svc.UpdateSection("Availability", SectionInput{Schedule: map[string]string{"Monday": "Limited"}})
	if err != nil {
		t.Fatalf("UpdateSection: %v", err)
	}
	if got := st.Current.OptionalSections.Availability.StatusFor("Monday"); got != model.Limited {
		t.Errorf("Monday = %q, want Limited", got)
	}
}

func TestApplyTheme(t *testing.T) {
	f := newFixture(t)

	st, err := f.svc.ApplyTheme("forest-green")
	if err != nil {
		t.Fatalf("ApplyTheme: %v", err)
	}
	want := model.Design{PrimaryColor: "#166534", SecondaryColor: "#F0FDF4", AccentColor: "#DC2626"}
	if st.Current.Design != want {
		t.Errorf("Design = %+v, want %+v", st.Current.Design, want)
	}

	if _, err := f.svc.ApplyTheme("neon"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown theme error = %v, want NotFound", err)
	}
}

// =========================================================================
// LIFECYCLE
// =========================================================================

func TestSave_EmptyCardIsRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Save(ctxT(t))

	if !errors.Is(err, apperror.ErrEmptyCard) {
		t.Fatalf("Save error = %v, want EmptyCardError", err)
	}
	if n := len(f.store.Snapshot().Saved); n != 0 {
		t.Errorf("Saved = %d cards, want 0", n)
	}
	if n := f.repo.saveCount(); n != 0 {
		t.Errorf("storage was written %d times", n)
	}
}

func TestSave_PersistsBeforeReturning(t *testing.T) {
	f := newFixture(t)
	f.svc.UpdateProviderInfo(ProviderInfoInput{Name: patch.Ptr("Jane")})

	st, err := f.svc.Save(ctxT(t))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if st.Current.ID == "" || st.Current.SavedAt == nil || !st.Current.SavedAt.Equal(testNow) {
		t.Errorf("saved card = id %q savedAt %v", st.Current.ID, st.Current.SavedAt)
	}
	stored := f.repo.stored()
	if len(stored) != 1 || stored[0].ID != st.Current.ID {
		t.Errorf("stored = %+v, want the saved card", stored)
	}
}

func TestSave_PersistenceFailureKeepsCardInMemory(t *testing.T) {
	f := newFixture(t)
	f.repo.saveErr = errors.New("disk full")
	f.svc.UpdateProviderInfo(ProviderInfoInput{Name: patch.Ptr("Jane")})

	st, err := f.svc.Save(ctxT(t))

	if !errors.Is(err, apperror.ErrPersistence) {
		t.Fatalf("Save error = %v, want PersistenceError", err)
	}
	if len(st.Saved) != 1 {
		t.Errorf("Saved = %d, want the card kept in memory", len(st.Saved))
	}
	if !f.store.Degraded() {
		t.Error("store should report degraded persistence")
	}
}

func TestLoadDeleteClear_ScenarioD(t *testing.T) {
	f := newFixture(t)
	ctx := ctxT(t)

	f.svc.UpdateProviderInfo(ProviderInfoInput{Name: patch.Ptr("Jane")})
	saved, _ := f.svc.Save(ctx)
	id := saved.Current.ID

	f.svc.Reset()
	st, err := f.svc.Load(id)
	if err != nil || st.Current.ID != id {
		t.Fatalf("Load = %q, %v", st.Current.ID, err)
	}

	st, err = f.svc.Delete(ctx, id)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(st.Saved) != 0 || len(f.repo.stored()) != 0 {
		t.Errorf("card still saved after delete")
	}
	if _, err := f.svc.Delete(ctx, id); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete error = %v, want NotFound", err)
	}
	if _, err := f.svc.Load(id); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Load deleted card error = %v, want NotFound", err)
	}

	f.svc.Reset()
	f.svc.UpdateProviderInfo(ProviderInfoInput{Name: patch.Ptr("A")})
	f.svc.Save(ctx)
	f.svc.Reset()
	f.svc.UpdateProviderInfo(ProviderInfoInput{Name: patch.Ptr("B")})
	f.svc.Save(ctx)

	st, err = f.svc.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(st.Saved) != 0 || len(f.svc.SavedCards()) != 0 || len(f.repo.stored()) != 0 {
		t.Errorf("saved cards remain after clear")
	}
}

// =========================================================================
// VIEWS
// =========================================================================

func TestPreview(t *testing.T) {
	f := newFixture(t)

	tree, err := f.svc.Preview("")
	if err != nil || !tree.Empty() {
		t.Fatalf("empty card preview = %+v, %v", tree, err)
	}

	f.svc.UpdateProviderInfo(ProviderInfoInput{Name: patch.Ptr("Jane")})
	tree, err = f.svc.Preview("compact")
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if tree.Empty() || tree.Mode != render.Compact {
		t.Errorf("compact preview = %+v", tree)
	}
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	ctx := ctxT(t)

	if _, err := f.svc.Export(ctx, ""); !errors.Is(err, apperror.ErrEmptyCard) {
		t.Errorf("export of empty card error = %v, want EmptyCardError", err)
	}
	if _, err := f.svc.Export(ctx, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("export of unknown card error = %v, want NotFound", err)
	}

	f.svc.UpdateProviderInfo(ProviderInfoInput{Name: patch.Ptr("Jane")})
	saved, _ := f.svc.Save(ctx)
	f.svc.UpdateProviderInfo(ProviderInfoInput{Name: patch.Ptr("Jane (edited)")})

	img, err := f.svc.Export(ctx, saved.Current.ID)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if img.Filename != "Jane-card.png" {
		t.Errorf("Filename = %q, want the saved card's name", img.Filename)
	}

	img, err = f.svc.Export(ctx, "")
	if err != nil {
		t.Fatalf("Export current: %v", err)
	}
	if img.Filename != "Jane (edited)-card.png" {
		t.Errorf("Filename = %q, want the current card's name", img.Filename)
	}
}
