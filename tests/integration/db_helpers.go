package integration

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/homekrypto/hkt-api/internal/auth"
	"github.com/homekrypto/hkt-api/internal/database"
	"github.com/homekrypto/hkt-api/internal/models"
	"github.com/homekrypto/hkt-api/migrations"
	pkgauth "github.com/homekrypto/hkt-api/pkg/auth"
)

// TestDB manages PostgreSQL testcontainer and database operations
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs migrations, returns TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("hkt"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         &database.DB{Pool: pool},
	}, nil
}

// runMigrations executes the embedded goose migrations against the container
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	goose.SetLogger(log.New(io.Discard, "", 0))
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	// Goose needs a database/sql connection, not the pgx pool
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"login_attempts",
		"one_time_tokens",
		"sessions",
		"token_purchases",
		"agent_pages",
		"properties",
		"agents",
		"users",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// SeedUser inserts a test user with hashed password
func SeedUser(ctx context.Context, pool *pgxpool.Pool, email, password string, verified bool) (*models.User, error) {
	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, role, email_verified, referral_code, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, 'Test', 'User', 'user', $3, substr(md5(random()::text), 1, 6), NOW(), NOW())
		RETURNING id, email, password_hash, first_name, last_name, role, email_verified, referral_code, created_at, updated_at
	`

	var user models.User
	err = pool.QueryRow(ctx, query, email, hashedPassword, verified).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.EmailVerified,
		&user.ReferralCode,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return &user, nil
}

// SeedAdmin inserts a test admin user
func SeedAdmin(ctx context.Context, pool *pgxpool.Pool, email, password string) (*models.User, error) {
	user, err := SeedUser(ctx, pool, email, password, true)
	if err != nil {
		return nil, err
	}

	if _, err := pool.Exec(ctx, `UPDATE users SET role = 'admin' WHERE id = $1`, user.ID); err != nil {
		return nil, fmt.Errorf("failed to promote admin: %w", err)
	}
	user.Role = models.RoleAdmin
	return user, nil
}

// SeedAgent inserts a pending agent application
func SeedAgent(ctx context.Context, pool *pgxpool.Pool, email, country string) (*models.Agent, error) {
	query := `
		INSERT INTO agents (id, first_name, last_name, email, phone, city, country, status, is_active, created_at, updated_at)
		VALUES (gen_random_uuid(), 'John', 'Smith', $1, '+1 555 0100', 'Warsaw', $2, 'pending', true, NOW(), NOW())
		RETURNING id, first_name, last_name, email, country, status, is_active
	`

	var agent models.Agent
	err := pool.QueryRow(ctx, query, email, country).Scan(
		&agent.ID,
		&agent.FirstName,
		&agent.LastName,
		&agent.Email,
		&agent.Country,
		&agent.Status,
		&agent.IsActive,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert agent: %w", err)
	}

	return &agent, nil
}

// SeedOneTimeToken creates a one-time token row of the given kind and
// returns the plain token for use in requests.
func SeedOneTimeToken(ctx context.Context, pool *pgxpool.Pool, userID, kind string, ttl time.Duration) (string, error) {
	plain, hash, err := auth.GenerateOneTimeToken()
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO one_time_tokens (id, user_id, kind, token_hash, created_at, expires_at)
		VALUES (gen_random_uuid(), $1, $2, $3, NOW(), NOW() + $4::interval)
	`
	interval := fmt.Sprintf("%d seconds", int(ttl.Seconds()))
	if _, err := pool.Exec(ctx, query, userID, kind, hash, interval); err != nil {
		return "", fmt.Errorf("failed to insert one-time token: %w", err)
	}

	return plain, nil
}

// SeedProperty inserts an active property listing
func SeedProperty(ctx context.Context, pool *pgxpool.Pool, id string) (*models.Property, error) {
	query := `
		INSERT INTO properties (id, name, location, description, price_per_night, total_shares, share_price, is_active, created_at, updated_at)
		VALUES ($1, 'Luxury Villa Cap Cana', 'Cap Cana, Dominican Republic', '', '285.00', 52, '3750.00', true, NOW(), NOW())
		RETURNING id, name, location, price_per_night::text, total_shares, share_price::text, is_active
	`

	var p models.Property
	err := pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Location,
		&p.PricePerNight,
		&p.TotalShares,
		&p.SharePrice,
		&p.IsActive,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert property: %w", err)
	}

	return &p, nil
}
