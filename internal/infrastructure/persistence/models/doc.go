// Package models contains the GORM persistence models. Domain entities stay
// free of ORM tags; each model converts to and from its entity.
package models
