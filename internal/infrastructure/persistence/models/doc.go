// Package models holds the GORM row types of the invoicing tables and their
// conversions to and from the domain aggregates. Domain types carry no ORM
// tags; repositories read and write these models only.
//
// The column layout mirrors migrations/*.sql. AutoMigrate on these models is
// used by the sqlite-backed tests, never against PostgreSQL.
package models
