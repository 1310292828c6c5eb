package composition

import (
	"fmt"

	"github.com/deploymenttheory/hms-setup/internal/config"
)

// DefaultWorkflow returns the ML setup sequence for the Hospital Management
// System: runtime check, dependency installation, training, inference test,
// trained-model check and the Django development server.
func DefaultWorkflow(cfg config.SetupConfig) *Workflow {
	serverURL := fmt.Sprintf("http://localhost:%d", cfg.Port)

	return &Workflow{
		Name:    "hms-ml-setup",
		Title:   "🏥 Hospital Management System - ML Models Setup",
		Version: "1",
		Completion: []string{
			"\n🎉 Setup completed successfully!",
			"Your Hospital Management System with trained ML models is ready!",
		},
		Variables: map[string]interface{}{},
		Steps: []StepDefinition{
			{
				Name:        "runtime",
				Type:        StepCheckVersion,
				Description: "Checking runtime version",
				Banner:      "🐍 Checking runtime version...",
				Parameters: map[string]interface{}{
					"min_version": cfg.MinRuntimeVersion,
				},
			},
			{
				Name:        "dependencies",
				Type:        StepInstall,
				Description: "Installing ML dependencies",
				Banner:      "\n📦 Installing ML dependencies...",
				OnFailure:   "❌ Failed to install ML dependencies!",
				Parameters: map[string]interface{}{
					"command":  cfg.InstallCommand,
					"packages": cfg.Packages,
				},
			},
			{
				Name:        "train",
				Type:        StepExec,
				Description: "Training ML models",
				Banner:      "\n🧠 Training ML Models...",
				OnFailure:   "❌ Failed to train ML models!",
				Dir:         cfg.ServicesDir,
				Parameters: map[string]interface{}{
					"command": cfg.TrainCommand,
				},
			},
			{
				Name:        "test",
				Type:        StepExec,
				Description: "Testing ML inference engine",
				Banner:      "\n🧪 Testing ML Models...",
				OnFailure:   "❌ Failed to test ML models!",
				Dir:         cfg.ServicesDir,
				Parameters: map[string]interface{}{
					"command": cfg.TestCommand,
				},
			},
			{
				Name:        "models",
				Type:        StepCheckDir,
				Description: "Checking trained models",
				Banner:      "\n🚀 Starting Django Server...",
				OnFailure:   "❌ Failed to start Django server!",
				Dir:         cfg.ServicesDir,
				Parameters: map[string]interface{}{
					"path":    cfg.ModelsDir,
					"found":   "ML models found! Starting Django server...",
					"missing": "ML models not found! Please train models first.",
					"models":  true,
				},
			},
			{
				Name:        "server",
				Type:        StepServe,
				Description: "Django server",
				OnFailure:   "❌ Failed to start Django server!",
				Dir:         cfg.ServicesDir,
				Parameters: map[string]interface{}{
					"command": fmt.Sprintf("%s %d", cfg.ServeCommand, cfg.Port),
					"notices": []string{
						"🌐 Django will be available at: " + serverURL,
						"🤖 ML API endpoints will be available at: " + serverURL + "/api/ml-models/",
						"📱 Frontend should be running at: " + cfg.FrontendURL,
					},
				},
			},
		},
	}
}
