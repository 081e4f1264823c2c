package service

import "github.com/hugo-lorenzo-mato/medpanel/internal/core"

// SoloExamples are the worked cases shown to a single primary care advisor.
var SoloExamples = []core.Example{
	{
		User: `# Step-by-step consultation

## Case
A 55-year-old man with type 2 diabetes on metformin 1000 mg twice daily has an HbA1c of 8.9% despite good adherence. What is the most appropriate next step?

## Options
A) Intensify diabetes management
B) Continue current therapy unchanged
C) Stop metformin
D) Repeat HbA1c in one year`,
		Assistant: `1. Key findings: adherent patient on maximal-dose metformin, HbA1c well above the usual 7% target.
2. Likely explanation: disease progression with insufficient monotherapy.
3. Comparing options: continuing unchanged leaves him uncontrolled; stopping metformin removes effective therapy; waiting a year delays care.
4. Ruled out: B, C and D.
5. Adding a second agent is standard.

Answer: A) Intensify diabetes management`,
	},
	{
		User: `# Step-by-step consultation

## Case
A 42-year-old woman reports fatigue, weight gain and cold intolerance. TSH is 12 mIU/L with a low free T4. What is the most likely diagnosis?

## Options
A) Hyperthyroidism
B) Hypothyroidism
C) Subclinical hypothyroidism
D) Depression`,
		Assistant: `1. Key findings: classic hypometabolic symptoms, raised TSH, low free T4.
2. Likely explanation: primary thyroid failure.
3. Comparing options: hyperthyroidism gives a low TSH; subclinical disease has a normal free T4; depression does not explain the labs.
4. Ruled out: A, C and D.
5. Overt primary hypothyroidism fits every finding.

Answer: B) Hypothyroidism`,
	},
}

// ClassifierExamples calibrate the complexity classifier.
var ClassifierExamples = []core.Example{
	{
		User:      "# Complexity check\n\nMedical Query: What is the usual starting dose of metformin for a newly diagnosed adult with type 2 diabetes?\n\nComplexity Level:",
		Assistant: "low",
	},
	{
		User:      "# Complexity check\n\nMedical Query: A 30-year-old returns from Southeast Asia with fever, headache and a rash for five days. What is the most likely diagnosis?\n\nComplexity Level:",
		Assistant: "moderate",
	},
	{
		User:      "# Complexity check\n\nMedical Query: A 70-year-old woman has sudden double vision, jaw claudication, scalp tenderness and a raised ESR. What is the most urgent next step?\n\nComplexity Level:",
		Assistant: "high",
	},
}
