package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/orderly/backend/internal/domain/order"
	"github.com/orderly/backend/internal/domain/shared"
	"github.com/orderly/backend/internal/domain/stats"
)

// newMockOrderRepository creates a GormOrderRepository with a mocked SQL connection
func newMockOrderRepository(t *testing.T) (*GormOrderRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormOrderRepository(gormDB), mock, mockDB
}

func storedOrder() *order.Order {
	now := time.Now()
	return &order.Order{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        uuid.New(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			Version: 1,
		},
		EntityID:      "ORD-2026-000001",
		CustomerID:    uuid.New(),
		OwnerUserID:   uuid.New(),
		MonetaryValue: decimal.NewFromFloat(199.90),
		Status:        order.StatusPlaced,
	}
}

func TestGormOrderRepository_FindByEntityID(t *testing.T) {
	t.Run("finds existing order", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		id := uuid.New()
		customerID := uuid.New()
		now := time.Now()

		rows := sqlmock.NewRows([]string{
			"id", "created_at", "updated_at", "version",
			"entity_id", "customer_id", "owner_user_id", "monetary_value", "status",
		}).AddRow(
			id, now, now, 3,
			"ORD-2026-000042", customerID, uuid.New(), "250.00", "SHIPPED",
		)

		mock.ExpectQuery(`SELECT \* FROM "orders" WHERE entity_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("ORD-2026-000042", 1).
			WillReturnRows(rows)

		o, err := repo.FindByEntityID(context.Background(), "ORD-2026-000042")

		require.NoError(t, err)
		assert.Equal(t, id, o.ID)
		assert.Equal(t, customerID, o.CustomerID)
		assert.Equal(t, order.StatusShipped, o.Status)
		assert.Equal(t, 3, o.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing row to not found", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "orders"`).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindByEntityID(context.Background(), "ORD-2026-999999")

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps database failure to storage unavailable", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "orders"`).
			WillReturnError(sql.ErrConnDone)

		_, err := repo.FindByEntityID(context.Background(), "ORD-2026-000042")

		assert.ErrorIs(t, err, shared.ErrStorageUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormOrderRepository_SaveWithLock(t *testing.T) {
	t.Run("updates row and appends ledger rows in one transaction", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		o := storedOrder()
		o.Status = order.StatusProcessing

		record := &order.HistoryRecord{
			ID:         uuid.New(),
			OrderID:    o.ID,
			EntityID:   o.EntityID,
			FromStatus: order.StatusPlaced,
			ToStatus:   order.StatusProcessing,
			ActorID:    uuid.New(),
			ActorRole:  shared.ActorRoleAgent,
			RecordedAt: time.Now(),
		}
		entry := stats.NewOutboxEntry(o.EntityID, stats.Delta{
			CustomerID: o.CustomerID,
			DedupKey:   record.ID,
		})

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "orders" SET`).
			WithArgs(string(order.StatusProcessing), sqlmock.AnyArg(), 2, o.ID, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO "order_history"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO "delta_outbox"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.SaveWithLock(context.Background(), o, []*order.HistoryRecord{record}, []*stats.OutboxEntry{entry})

		require.NoError(t, err)
		assert.Equal(t, 2, o.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version returns concurrency conflict and rolls back", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		o := storedOrder()
		o.Status = order.StatusProcessing

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "orders" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.SaveWithLock(context.Background(), o, nil, nil)

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Equal(t, 1, o.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed history insert rolls the transaction back", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		o := storedOrder()
		record := &order.HistoryRecord{
			ID:         uuid.New(),
			OrderID:    o.ID,
			EntityID:   o.EntityID,
			ToStatus:   order.StatusProcessing,
			ActorID:    uuid.New(),
			ActorRole:  shared.ActorRoleAgent,
			RecordedAt: time.Now(),
		}

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "orders" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO "order_history"`).
			WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		err := repo.SaveWithLock(context.Background(), o, []*order.HistoryRecord{record}, nil)

		require.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormOrderRepository_History(t *testing.T) {
	t.Run("returns transition log oldest first", func(t *testing.T) {
		repo, mock, mockDB := newMockOrderRepository(t)
		defer mockDB.Close()

		orderID := uuid.New()
		base := time.Now().Add(-time.Hour)

		rows := sqlmock.NewRows([]string{
			"id", "order_id", "entity_id", "from_status", "to_status",
			"actor_id", "actor_role", "note", "recorded_at",
		}).AddRow(
			uuid.New(), orderID, "ORD-2026-000001", "", "PLACED",
			uuid.New(), "customer", "", base,
		).AddRow(
			uuid.New(), orderID, "ORD-2026-000001", "PLACED", "PROCESSING",
			uuid.New(), "agent", "", base.Add(time.Minute),
		)

		mock.ExpectQuery(`SELECT \* FROM "order_history" WHERE order_id = \$1 ORDER BY recorded_at ASC`).
			WithArgs(orderID).
			WillReturnRows(rows)

		records, err := repo.History(context.Background(), orderID)

		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, order.StatusPlaced, records[0].ToStatus)
		assert.Equal(t, order.StatusProcessing, records[1].ToStatus)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
