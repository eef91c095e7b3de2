package preferences

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

type failingStore struct {
	loadErr error
	saveErr error
	saved   []Settings
}

func (f *failingStore) Load(ctx context.Context, key string) (Settings, bool, error) {
	return Settings{}, false, f.loadErr
}

func (f *failingStore) Save(ctx context.Context, key string, s Settings) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, s)
	return nil
}

func TestInitUsesDefaultsWhenNothingStored(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "prefs.json"))
	c := Init(context.Background(), store, "goroute-theme", Defaults(), nil)

	if c.Theme() != ThemeSystem || c.Language() != LanguageEnglish {
		t.Errorf("Expected defaults, got %+v", c.Settings())
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Error("Init must not write anything")
	}
}

func TestSettersPersistAcrossInit(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "prefs.json")

	c := Init(ctx, NewFileStore(path), "goroute-theme", Defaults(), nil)
	if err := c.SetTheme(ctx, ThemeDark); err != nil {
		t.Fatalf("SetTheme: %v", err)
	}
	if err := c.SetLanguage(ctx, LanguageMarathi); err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}

	again := Init(ctx, NewFileStore(path), "goroute-theme", Defaults(), nil)
	want := Settings{Theme: ThemeDark, Language: LanguageMarathi}
	if again.Settings() != want {
		t.Errorf("Expected %+v, got %+v", want, again.Settings())
	}

	other := Init(ctx, NewFileStore(path), "kiosk-2", Defaults(), nil)
	if other.Settings() != Defaults() {
		t.Errorf("Keys must not share settings, got %+v", other.Settings())
	}
}

func TestInitIgnoresCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewFileStore(path)
	c := Init(context.Background(), store, "goroute-theme", Settings{Theme: ThemeLight, Language: LanguageHindi}, nil)
	if c.Theme() != ThemeLight || c.Language() != LanguageHindi {
		t.Errorf("Expected supplied defaults, got %+v", c.Settings())
	}

	if err := c.SetTheme(context.Background(), ThemeDark); err != nil {
		t.Fatalf("Saving over a corrupt file should work, got %v", err)
	}
	s, ok, err := store.Load(context.Background(), "goroute-theme")
	if err != nil || !ok || s.Theme != ThemeDark {
		t.Errorf("Expected dark theme stored, got %+v %v %v", s, ok, err)
	}
}

func TestInitDropsUnknownStoredValues(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "prefs.json"))
	if err := store.Save(ctx, "goroute-theme", Settings{Theme: "sepia", Language: LanguageHindi}); err != nil {
		t.Fatal(err)
	}
	c := Init(ctx, store, "goroute-theme", Defaults(), nil)
	if c.Theme() != ThemeSystem || c.Language() != LanguageHindi {
		t.Errorf("Expected system/hi, got %+v", c.Settings())
	}
}

func TestSetterKeepsValueOnStoreError(t *testing.T) {
	store := &failingStore{loadErr: errors.New("disk gone"), saveErr: errors.New("read-only")}
	c := Init(context.Background(), store, "goroute-theme", Defaults(), nil)

	if err := c.SetTheme(context.Background(), ThemeDark); err == nil {
		t.Fatal("Expected error")
	}
	if c.Theme() != ThemeSystem {
		t.Errorf("Expected theme unchanged, got %s", c.Theme())
	}
}

func TestSetterRejectsUnknownValues(t *testing.T) {
	store := &failingStore{}
	c := Init(context.Background(), store, "goroute-theme", Defaults(), nil)

	if err := c.SetTheme(context.Background(), "blue"); err == nil {
		t.Error("Expected error for unknown theme")
	}
	if err := c.SetLanguage(context.Background(), "fr"); err == nil {
		t.Error("Expected error for unknown language")
	}
	if len(store.saved) != 0 {
		t.Errorf("Expected nothing saved, got %v", store.saved)
	}
}

func TestParse(t *testing.T) {
	if th, err := ParseTheme(" Dark "); err != nil || th != ThemeDark {
		t.Errorf("Expected dark, got %s %v", th, err)
	}
	if _, err := ParseLanguage("de"); err == nil {
		t.Error("Expected error for de")
	}
}

func TestPostgresStoreLoad(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT theme, language FROM goroute\\.preferences").WithArgs("goroute-theme").
		WillReturnRows(sqlmock.NewRows([]string{"theme", "language"}).AddRow("dark", "hi"))
	mock.ExpectQuery("SELECT theme, language FROM goroute\\.preferences").WithArgs("kiosk-9").
		WillReturnRows(sqlmock.NewRows([]string{"theme", "language"}))

	store := NewPostgresStore(db)
	s, ok, err := store.Load(context.Background(), "goroute-theme")
	if err != nil || !ok {
		t.Fatalf("Load: %v %v", ok, err)
	}
	if s.Theme != ThemeDark || s.Language != LanguageHindi {
		t.Errorf("Unexpected settings %+v", s)
	}

	if _, ok, err := store.Load(context.Background(), "kiosk-9"); ok || err != nil {
		t.Errorf("Expected missing record, got %v %v", ok, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreSaveThroughContext(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT theme, language").WithArgs("goroute-theme").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectExec("INSERT INTO goroute\\.preferences").WithArgs("goroute-theme", "light", "en").
		WillReturnResult(sqlmock.NewResult(0, 1))

	c := Init(context.Background(), NewPostgresStore(db), "goroute-theme", Defaults(), nil)
	if c.Settings() != Defaults() {
		t.Errorf("Expected defaults after load failure, got %+v", c.Settings())
	}
	if err := c.SetTheme(context.Background(), ThemeLight); err != nil {
		t.Fatalf("SetTheme: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStorePruneStale(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("DELETE FROM goroute\\.preferences").WithArgs(30).
		WillReturnResult(sqlmock.NewResult(0, 4))

	store := NewPostgresStore(db)
	n, err := store.PruneStale(context.Background(), 30)
	if err != nil {
		t.Fatalf("PruneStale: %v", err)
	}
	if n != 4 {
		t.Errorf("Expected 4 rows pruned, got %d", n)
	}
	if _, err := store.PruneStale(context.Background(), 0); err == nil {
		t.Error("Expected error for zero retention")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
