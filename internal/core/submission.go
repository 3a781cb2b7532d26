package core

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// OnSubmissionWritten implements spec.md §6's invalidation hook: recompute
// the submission's derived scores, then invalidate the caches they feed.
// Serialized per-patient via the cache's PatientLocks so a burst of writes
// for the same patient never races ComputeForSubmission against itself;
// unrelated patients' writes proceed concurrently.
//
// Idempotent: ComputeForSubmission upserts by (submission_id, scale_id),
// and InvalidatePatient/InvalidatePopulation are themselves idempotent, so
// calling this twice for the same submission produces the same derived
// rows and the same invalidation effect (spec.md §8 property 6).
func (c *Core) OnSubmissionWritten(ctx context.Context, submissionID uuid.UUID) error {
	log := c.logger.WithFields(logrus.Fields{"submission_id": submissionID, "op": "OnSubmissionWritten"})

	submission, err := c.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return err
	}

	unlock := c.cache.Locks().Lock(submission.PatientID)
	defer unlock()

	if err := c.computer.ComputeForSubmission(ctx, c.store, *submission); err != nil {
		return err
	}

	if err := c.cache.InvalidatePatient(ctx, submission.PatientID); err != nil {
		log.WithError(err).WithField("patient_id", submission.PatientID).Warn("patient cache invalidation failed")
	}
	c.cache.InvalidatePopulation(ctx)

	log.WithField("patient_id", submission.PatientID).Debug("submission write processed")
	return nil
}
