package main

import (
	"fmt"
	"io"

	"github.com/pavelanni/caseload/internal/hierarchy"
	"github.com/pavelanni/caseload/internal/model"
	"github.com/pavelanni/caseload/internal/transcript"
	"github.com/pavelanni/caseload/internal/wizard"
)

// printSelection renders every selected student as subject area, goal and objective
// lines. Goals show how many of their objectives are chosen.
func printSelection(w io.Writer, s wizard.State) {
	for _, e := range s.Students() {
		st := e.Student
		st.SubjectAreas = e.SelectedAreas()
		sel := e.Selection()
		v := hierarchy.FromStudent(st)
		fmt.Fprintln(w, st.Name)
		for _, a := range v.Areas {
			fmt.Fprintf(w, "  %s\n", a.Area.Name)
			for _, g := range a.Goals.Groups() {
				c := a.Goals.CountSelected(g.Key, sel)
				fmt.Fprintf(w, "    %s (%d/%d)\n", g.Goal.Title, c.Selected, c.Total)
				for _, o := range g.Objectives {
					fmt.Fprintf(w, "      [%s] %s\n", mark(sel.Has(o.ID), "x"), o.Description)
				}
			}
		}
	}
}

// printCandidates lists a parsed session's candidates grouped by goal. The chosen
// student, goal and objective are starred; analyzer reasons follow the objective.
func printCandidates(w io.Writer, ps model.ParsedSession, c transcript.Choice) {
	for _, cv := range hierarchy.FromParsedSession(ps) {
		chosen := cv.Student.ID == c.StudentID
		goal := ""
		if chosen {
			goal, _ = cv.Goals.GoalOf(c.ObjectiveID)
		}
		fmt.Fprintf(w, "   %s %s\n", mark(chosen, "*"), cv.Student.Name)
		for _, g := range cv.Goals.Groups() {
			fmt.Fprintf(w, "     %s %s\n", mark(goal != "" && g.Key == goal, "*"), g.Goal.Title)
			for _, o := range g.Objectives {
				line := o.Description
				if reason := cv.Reasons[o.ID]; reason != "" {
					line += " (" + reason + ")"
				}
				fmt.Fprintf(w, "       %s %s\n", mark(chosen && o.ID == c.ObjectiveID, "*"), line)
			}
		}
	}
}

func mark(on bool, m string) string {
	if on {
		return m
	}
	return " "
}
