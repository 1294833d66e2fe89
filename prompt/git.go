package prompt

import (
	"fmt"
	"os/exec"

	"go.uber.org/zap"
)

// FeatureBranchName is the branch the init flow commits generated files to.
func FeatureBranchName(modelName string) string {
	return fmt.Sprintf("feature/deploy-%s", modelName)
}

// CreateFeatureBranch creates and checks out a feature branch for the
// generated files. Branch creation is best effort: outside a git repository,
// or if the branch already exists, init proceeds on the current branch.
func CreateFeatureBranch(branch string, logger *zap.Logger) {
	if err := exec.Command("git", "rev-parse", "--git-dir").Run(); err != nil {
		logger.Warn("not a git repository, skipping branch creation")
		return
	}
	if out, err := exec.Command("git", "checkout", "-b", branch).CombinedOutput(); err != nil {
		logger.Warn("could not create branch", zap.String("branch", branch),
			zap.String("output", string(out)), zap.Error(err))
		return
	}
	logger.Info("created feature branch", zap.String("branch", branch))
}
