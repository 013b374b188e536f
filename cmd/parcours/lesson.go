package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"parcours/internal/lesson"
	"parcours/internal/pipeline"
	"parcours/internal/render"
)

var termWidth int

var lessonCmd = &cobra.Command{
	Use:   "lesson",
	Short: "Lektionen im Terminal anzeigen und fortsetzen",
}

var lessonShowCmd = &cobra.Command{
	Use:   "show [lesson-id]",
	Short: "Öffnet eine Lektion (entwickelt sie bei Bedarf) und zeigt sie an",
	Args:  cobra.ExactArgs(1),
	RunE:  runLessonShow,
}

var lessonContinueCmd = &cobra.Command{
	Use:   "continue [lesson-id]",
	Short: "Fordert eine Fortsetzung der Lektion an",
	Args:  cobra.ExactArgs(1),
	RunE:  runLessonContinue,
}

func init() {
	lessonCmd.PersistentFlags().IntVar(&termWidth, "width", 80, "Umbruchbreite der Ausgabe")
	lessonCmd.AddCommand(lessonShowCmd)
	lessonCmd.AddCommand(lessonContinueCmd)
}

func runLessonShow(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	view, err := a.Orchestrator.OpenLesson(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if view.DevelopError != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Entwicklung fehlgeschlagen: %s\n", view.DevelopError)
	}
	if err := printLesson(cmd, view); err != nil {
		return err
	}
	if view.State == pipeline.StateStructured {
		printProgress(cmd, a.Lessons.Progress(args[0]))
	}
	return nil
}

func runLessonContinue(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id := args[0]
	view, err := a.Orchestrator.OpenLesson(cmd.Context(), id)
	if err != nil {
		return err
	}
	if view.State != pipeline.StateStructured {
		return fmt.Errorf("Lektion %s ist nicht strukturiert und kann nicht fortgesetzt werden", id)
	}

	res, err := a.Orchestrator.ContinueLesson(cmd.Context(), id)
	if err != nil {
		return err
	}
	switch res.Outcome {
	case lesson.Applied:
		out, err := render.Terminal(render.Markdown(res.State.Document), termWidth)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
	case lesson.SkippedCap:
		fmt.Fprintln(cmd.OutOrStdout(), "Maximale Anzahl an Fortsetzungen erreicht.")
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "Keine Änderung (%s).\n", res.Outcome)
	}
	printProgress(cmd, a.Lessons.Progress(id))
	return nil
}

func printLesson(cmd *cobra.Command, view *pipeline.LessonView) error {
	var md string
	if view.Document != nil {
		md = render.Markdown(view.Document)
	} else {
		md = render.Plain(view.Lesson.Title, view.Text)
	}
	out, err := render.Terminal(md, termWidth)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

func printProgress(cmd *cobra.Command, p lesson.Progress) {
	fmt.Fprintf(cmd.OutOrStdout(), "Fortsetzungen: %d/%d (%d%%)\n", p.Count, p.Max, p.Percent)
}
