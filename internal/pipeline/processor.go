package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/YangKGcsdms/Dendrite/internal/progress"
	"github.com/YangKGcsdms/Dendrite/pkg/types"
)

// Processor runs a single evaluation through the full pipeline immediately,
// publishing bilingual progress updates along the way. It shares the
// extractor, synthesizer and vectorizer with the scheduled worker, so a
// real-time run still costs exactly one quota grant.
type Processor struct {
	extractor   *SkillExtractor
	synthesizer *ProfileSynthesizer
	vectorizer  *BatchVectorGenerator
	tracker     *progress.Tracker
}

// NewProcessor creates a real-time processor.
func NewProcessor(extractor *SkillExtractor, synthesizer *ProfileSynthesizer, vectorizer *BatchVectorGenerator, tracker *progress.Tracker) *Processor {
	return &Processor{extractor: extractor, synthesizer: synthesizer, vectorizer: vectorizer, tracker: tracker}
}

// ProcessAsync starts processing in the background and returns the progress
// task ID immediately.
func (p *Processor) ProcessAsync(task types.EvaluationTask) string {
	taskID := p.tracker.Start("任务已接收", "Task accepted")
	go func() {
		// The submission already returned; processing owns its own lifetime.
		p.process(context.Background(), taskID, task)
	}()
	return taskID
}

func (p *Processor) process(ctx context.Context, taskID string, task types.EvaluationTask) {
	log.Printf("[realtime] processing evaluation for %s (task %s)", task.EmployeeName, taskID)
	start := time.Now()

	fail := func(err error) {
		log.Printf("ERROR: [realtime] processing failed for %s: %v", task.EmployeeName, err)
		p.tracker.Publish(taskID, progress.StatusFailed,
			"处理失败: "+err.Error(), "Process failed: "+err.Error(), 100)
	}

	p.tracker.Publish(taskID, progress.StatusProcessing, "正在提取技能...", "Extracting skills...", 10)
	skills, err := p.extractor.Extract(ctx, task.EmployeeName, task.RawContent)
	if err != nil {
		fail(err)
		return
	}
	p.tracker.Publish(taskID, progress.StatusProcessing,
		fmt.Sprintf("技能提取完成，共 %d 项", len(skills)),
		fmt.Sprintf("Skills extracted: %d", len(skills)), 30)

	p.tracker.Publish(taskID, progress.StatusProcessing, "正在生成人才画像...", "Generating talent profile...", 50)
	profile, err := p.synthesizer.Synthesize(ctx, task.EmployeeName)
	if err != nil {
		fail(err)
		return
	}
	p.tracker.Publish(taskID, progress.StatusProcessing, "人才画像生成完成", "Profile generated", 80)

	p.tracker.Publish(taskID, progress.StatusProcessing,
		"正在生成并保存向量(批量模式)...", "Generating vectors (batch mode)...", 90)
	if err := p.vectorizer.Generate(ctx, skills, []*types.TalentProfile{profile}); err != nil {
		fail(err)
		return
	}

	duration := time.Since(start)
	p.tracker.Publish(taskID, progress.StatusCompleted,
		fmt.Sprintf("处理完成！提取 %d 项技能，耗时 %dms", len(skills), duration.Milliseconds()),
		fmt.Sprintf("Complete! %d skills extracted in %dms", len(skills), duration.Milliseconds()), 100)
	log.Printf("[realtime] evaluation completed for %s in %v", task.EmployeeName, duration.Round(time.Millisecond))
}
