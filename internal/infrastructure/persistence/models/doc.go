// Package models contains the GORM table models for the swim-team collections.
//
// Records travel through the application as schemaless shared.Record maps;
// these structs exist to describe the tables (AutoMigrate on sqlite, the
// field-kind schema used to normalise driver values) and are not used as
// domain entities.
//
// Reference fields are flat id columns named after the referenced type
// (season.team, meet.season, result.meet ...). List fields are StringList
// columns stored as JSON text.
package models
