package store

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/use-agent/enrich/models"
)

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *Postgres) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, New(mock)
}

func TestEnsureSchema(t *testing.T) {
	mock, s := newMock(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS desc_product").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPendingProducts(t *testing.T) {
	mock, s := newMock(t)
	cols := []string{"product_id", "description", "manufacturer_name"}
	mock.ExpectQuery("FROM desc_product WHERE status_description = FALSE ORDER BY product_id LIMIT").
		WithArgs(2).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("100001", "GLENFIDDICH 12Y 0.7L", "William Grant").
			AddRow("100002", "LINDT EXCELLENCE 70% 100G", "Lindt"))

	got, err := s.PendingProducts(context.Background(), 2)
	if err != nil {
		t.Fatalf("PendingProducts: %v", err)
	}
	if len(got) != 2 || got[0].ID != "100001" || got[1].Manufacturer != "Lindt" {
		t.Errorf("products = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPendingProductsUnlimited(t *testing.T) {
	mock, s := newMock(t)
	mock.ExpectQuery("FROM desc_product WHERE status_description = FALSE ORDER BY product_id").
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "description", "manufacturer_name"}))

	got, err := s.PendingProducts(context.Background(), 0)
	if err != nil {
		t.Fatalf("PendingProducts: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("products = %+v", got)
	}
}

func TestPendingProductsQueryError(t *testing.T) {
	mock, s := newMock(t)
	mock.ExpectQuery("FROM desc_product").WithArgs(10).WillReturnError(errors.New("relation does not exist"))

	_, err := s.PendingProducts(context.Background(), 10)
	if models.CodeOf(err) != models.ErrCodeStore {
		t.Fatalf("code = %q, want %q", models.CodeOf(err), models.ErrCodeStore)
	}
}

func TestUpsertDescription(t *testing.T) {
	tests := []struct {
		name        string
		description string
		wantMark    bool
	}{
		{"described", "Aged in oak casks.", true},
		{"sentinel leaves status", models.NotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, s := newMock(t)
			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO desc_description").
				WithArgs("100001", "Glenfiddich 12", tt.description, "https://a.example/p").
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
			if tt.wantMark {
				mock.ExpectExec("UPDATE desc_product SET status_description = TRUE").
					WithArgs("100001").
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			}
			mock.ExpectCommit()

			err := s.UpsertDescription(context.Background(), "100001", "Glenfiddich 12", tt.description, "https://a.example/p")
			if err != nil {
				t.Fatalf("UpsertDescription: %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestUpsertDescriptionRollsBack(t *testing.T) {
	mock, s := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO desc_description").
		WithArgs("100001", "n", "d", "u").
		WillReturnError(errors.New("value too long"))
	mock.ExpectRollback()

	err := s.UpsertDescription(context.Background(), "100001", "n", "d", "u")
	if !models.IsStoreError(err) {
		t.Fatalf("err = %v, want store error", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertSpecifications(t *testing.T) {
	mock, s := newMock(t)
	mock.ExpectBegin()
	// Attributes are written in key order.
	mock.ExpectExec("INSERT INTO desc_specification").
		WithArgs("100001", "Alcohol", "40%").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO desc_specification").
		WithArgs("100001", "Volume", "0.7 l").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.UpsertSpecifications(context.Background(), "100001", models.AttributeMap{
		"Volume":  "0.7 l",
		"Alcohol": "40%",
	})
	if err != nil {
		t.Fatalf("UpsertSpecifications: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertSpecificationsEmpty(t *testing.T) {
	mock, s := newMock(t)
	if err := s.UpsertSpecifications(context.Background(), "100001", models.AttributeMap{}); err != nil {
		t.Fatalf("UpsertSpecifications: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected database call: %v", err)
	}
}

func TestSaveRecord(t *testing.T) {
	tests := []struct {
		name string
		rec  models.ProductRecord
		mark bool
	}{
		{"described", models.ProductRecord{ProductName: "n", Description: "d", Specifications: models.AttributeMap{"Volume": "50 ml"}}, true},
		{"no specifications", models.ProductRecord{ProductName: "n", Description: "d"}, true},
		{"sentinel", models.ProductRecord{ProductName: "n", Description: models.NotFound}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, s := newMock(t)
			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO desc_description").
				WithArgs("100001", "n", tt.rec.Description, "u").
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
			for k, v := range tt.rec.Specifications {
				mock.ExpectExec("INSERT INTO desc_specification").
					WithArgs("100001", k, v).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			}
			if tt.mark {
				mock.ExpectExec("UPDATE desc_product SET status_description").
					WithArgs("100001").
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			}
			mock.ExpectCommit()

			if err := s.SaveRecord(context.Background(), "100001", &tt.rec, "u"); err != nil {
				t.Fatalf("SaveRecord: %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestSaveRecordSpecificationFailureKeepsBacklog(t *testing.T) {
	mock, s := newMock(t)
	rec := &models.ProductRecord{
		ProductName:    "n",
		Description:    "d",
		Specifications: models.AttributeMap{"Alcohol": "40%", "Volume": "50 ml"},
	}
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO desc_description").
		WithArgs("100001", "n", "d", "u").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO desc_specification").
		WithArgs("100001", "Alcohol", "40%").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO desc_specification").
		WithArgs("100001", "Volume", "50 ml").
		WillReturnError(errors.New("value too long"))
	mock.ExpectRollback()

	err := s.SaveRecord(context.Background(), "100001", rec, "u")
	if !models.IsStoreError(err) {
		t.Fatalf("err = %v, want store error", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestBeginFailure(t *testing.T) {
	mock, s := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("connection reset"))

	err := s.UpsertSpecifications(context.Background(), "1", models.AttributeMap{"a": "b"})
	if models.CodeOf(err) != models.ErrCodeStore {
		t.Fatalf("code = %q", models.CodeOf(err))
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(
		models.Product{ID: "2", Name: "B"},
		models.Product{ID: "1", Name: "A"},
		models.Product{ID: "3", Name: "C"},
	)

	pending, _ := m.PendingProducts(ctx, 2)
	if len(pending) != 2 || pending[0].ID != "1" || pending[1].ID != "2" {
		t.Fatalf("pending = %+v", pending)
	}

	_ = m.UpsertDescription(ctx, "1", "A", "text", "https://a.example/")
	_ = m.UpsertDescription(ctx, "2", "B", models.NotFound, "https://b.example/")
	pending, _ = m.PendingProducts(ctx, 0)
	if len(pending) != 2 || pending[0].ID != "2" || pending[1].ID != "3" {
		t.Errorf("pending after upsert = %+v", pending)
	}

	_ = m.UpsertSpecifications(ctx, "1", models.AttributeMap{"Volume": "1 l"})
	_ = m.UpsertSpecifications(ctx, "1", models.AttributeMap{"Volume": "0.7 l", "Alcohol": "40%"})
	specs := m.Specifications("1")
	if specs["Volume"] != "0.7 l" || specs["Alcohol"] != "40%" {
		t.Errorf("specs = %v", specs)
	}
	if d, ok := m.Description("1"); !ok || d.Link != "https://a.example/" {
		t.Errorf("description = %+v, %v", d, ok)
	}

	rec := &models.ProductRecord{ProductName: "C", Description: "c", Specifications: models.AttributeMap{"Volume": "2 l"}}
	_ = m.SaveRecord(ctx, "3", rec, "https://c.example/")
	pending, _ = m.PendingProducts(ctx, 0)
	if len(pending) != 1 || pending[0].ID != "2" {
		t.Errorf("pending after save = %+v", pending)
	}
	if m.Specifications("3")["Volume"] != "2 l" {
		t.Errorf("saved specs = %v", m.Specifications("3"))
	}
}
