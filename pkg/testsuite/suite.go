package testsuite

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/leandroAntunes00/e-commerce-microservice/pkg/messaging"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
)

// BaseSuite spins up the infrastructure each service's integration tests
// need: a Postgres with migrations applied and a RabbitMQ broker.
type BaseSuite struct {
	suite.Suite

	PgContainer     *postgres.PostgresContainer
	RabbitContainer *rabbitmq.RabbitMQContainer
	DbPool          *pgxpool.Pool
	Rabbit          messaging.Settings
	Ctx             context.Context
}

func (s *BaseSuite) SetupInfrastructure(migrationsRelPath string) {
	s.Ctx = context.Background()

	var err error
	s.PgContainer, err = postgres.Run(
		s.Ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	s.Require().NoError(err)

	connStr, err := s.PgContainer.ConnectionString(s.Ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.RabbitContainer, err = rabbitmq.Run(
		s.Ctx,
		"rabbitmq:3.12-alpine",
		rabbitmq.WithAdminUsername("guest"),
		rabbitmq.WithAdminPassword("guest"),
	)
	s.Require().NoError(err)

	amqpURL, err := s.RabbitContainer.AmqpURL(s.Ctx)
	s.Require().NoError(err)
	s.Rabbit = settingsFromURL(s, amqpURL)

	absPath, err := filepath.Abs(migrationsRelPath)
	s.Require().NoError(err)

	m, err := migrate.New("file://"+absPath, connStr)
	s.Require().NoError(err)
	s.Require().NoError(m.Up())

	s.DbPool, err = pgxpool.New(s.Ctx, connStr)
	s.Require().NoError(err)
}

func settingsFromURL(s *BaseSuite, amqpURL string) messaging.Settings {
	parsed, err := url.Parse(amqpURL)
	s.Require().NoError(err)

	port, err := strconv.Atoi(parsed.Port())
	s.Require().NoError(err)

	password, _ := parsed.User.Password()
	return messaging.Settings{
		Host:        parsed.Hostname(),
		Port:        port,
		User:        parsed.User.Username(),
		Password:    password,
		VHost:       "/",
		Exchange:    "test_exchange",
		QueuePrefix: "test_",
	}
}

func (s *BaseSuite) TearDownInfrastructure() {
	if s.DbPool != nil {
		s.DbPool.Close()
	}
	if s.PgContainer != nil {
		_ = s.PgContainer.Terminate(s.Ctx)
	}
	if s.RabbitContainer != nil {
		_ = s.RabbitContainer.Terminate(s.Ctx)
	}
}

func (s *BaseSuite) TruncateTable(tableName string) {
	_, err := s.DbPool.Exec(s.Ctx, fmt.Sprintf("TRUNCATE %s CASCADE", tableName))
	s.Require().NoError(err)
}
