// Package domain contains the core business entities, value objects, and
// domain logic of the personalization engine: learner profiles, the task
// type catalog, task records and their lifecycle, and objective history.
// It represents the heart of the system, independent of any specific
// infrastructure or delivery mechanism.
package domain
