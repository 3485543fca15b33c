package jobqueue

import (
	"github.com/gofiber/fiber/v2/log"

	"bizdir/internal/pkg/database"
	"bizdir/internal/pkg/planpolicy"
)

// processPlanExpirySweepJob demotes every approved listing whose paid plan has
// run out. The sweep needs no billing provider: it only moves plan pointers.
func (q *Queue) processPlanExpirySweepJob(job *Job) error {
	svc := planpolicy.NewServiceFromDB(database.GetDB(), nil)
	changed, err := svc.ReconcileAll()
	if err != nil {
		return err
	}
	if changed > 0 {
		log.Infof("[JobQueue] Plan expiry sweep demoted %d listings", changed)
	}
	return nil
}
