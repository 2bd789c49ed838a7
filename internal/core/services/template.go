package services

import (
	"strings"

	"github.com/campfire-labs/campfire/internal/core/domain"
)

// Canned checklists per emergency category, used when live generation is
// unavailable. Every step cites the retrieved hits passed in, never a
// fabricated location; with no hits the steps carry no citation at all.

// templateStep is one step before citation attachment.
type templateStep struct {
	title   string
	action  string
	caution string
}

// emergencyTemplate is a keyword-matched canned checklist.
type emergencyTemplate struct {
	category string
	keywords []string
	steps    []templateStep
	whenCall string
}

var emergencyTemplates = []emergencyTemplate{
	{
		category: "choking",
		keywords: []string{"choking", "choke", "heimlich", "airway blocked", "can't breathe", "cannot breathe"},
		steps: []templateStep{
			{"Encourage coughing", "If the person can cough or speak, encourage them to keep coughing to clear the blockage.", ""},
			{"Give back blows", "If coughing fails, lean the person forward and give up to 5 sharp blows between the shoulder blades with the heel of your hand.", ""},
			{"Give abdominal thrusts", "If back blows fail, stand behind the person, place a fist above the navel, grasp it with the other hand, and pull sharply inward and upward up to 5 times.", "Do not use abdominal thrusts on infants under one year."},
			{"Call emergency services", "If the blockage does not clear, call your local emergency services and continue alternating back blows and abdominal thrusts.", ""},
		},
		whenCall: "Call emergency services if the person cannot breathe, cough, or speak, or becomes unresponsive.",
	},
	{
		category: "burn",
		keywords: []string{"burn", "burned", "burnt", "scald", "scalded"},
		steps: []templateStep{
			{"Cool the burn", "Hold the burned area under cool running water for at least 20 minutes, as soon as possible after the injury.", "Do not use ice, creams, or greasy substances."},
			{"Remove constricting items", "Gently remove rings, watches, and tight clothing near the burn before swelling starts, unless stuck to the skin.", ""},
			{"Cover loosely", "Cover the burn with a sterile, non-fluffy dressing or clean plastic film, applied loosely.", "Do not break blisters."},
			{"Seek medical help", "Seek medical help for burns larger than the person's palm, burns on the face, hands, or joints, or any deep burn.", ""},
		},
		whenCall: "Call emergency services for large, deep, electrical, or chemical burns, or burns affecting breathing.",
	},
	{
		category: "bleeding",
		keywords: []string{"bleeding", "blood", "cut", "wound", "laceration", "hemorrhage"},
		steps: []templateStep{
			{"Apply direct pressure", "Press firmly on the wound with a clean cloth or dressing. Keep pressing without lifting to check.", ""},
			{"Keep pressure continuous", "If blood soaks through, add more material on top without removing the first layer.", "Do not remove embedded objects; press around them instead."},
			{"Position the person", "Lay the person down and, if possible, raise the injured area. Keep them warm and calm.", ""},
			{"Get emergency help", "For severe or spurting bleeding, call your local emergency services immediately while maintaining pressure.", ""},
		},
		whenCall: "Call emergency services if bleeding is severe, spurting, or does not stop after 10 minutes of firm pressure.",
	},
	{
		category: "unconscious",
		keywords: []string{"unconscious", "unresponsive", "passed out", "fainted", "not waking", "collapsed"},
		steps: []templateStep{
			{"Check responsiveness", "Gently shake the person's shoulders and ask loudly if they are all right.", ""},
			{"Open the airway", "Tilt the head back and lift the chin. Look, listen, and feel for normal breathing for up to 10 seconds.", ""},
			{"Recovery position", "If they are breathing normally, roll them onto their side with the head tilted back, and monitor breathing continuously.", ""},
			{"Call emergency services", "Call your local emergency services. If breathing stops or is not normal, begin CPR if you are trained.", ""},
		},
		whenCall: "Call emergency services immediately for any unresponsive person.",
	},
	{
		category: "chest-pain",
		keywords: []string{"chest pain", "heart attack", "cardiac", "chest pressure", "chest tightness"},
		steps: []templateStep{
			{"Call emergency services now", "Chest pain can signal a heart attack. Call your local emergency services immediately.", ""},
			{"Rest the person", "Help the person into a comfortable half-sitting position, knees bent, and loosen tight clothing.", ""},
			{"Do not leave them alone", "Stay with the person, keep them calm, and watch their breathing until help arrives.", ""},
			{"Prepare for CPR", "If the person becomes unresponsive and stops breathing normally, begin CPR if you are trained.", ""},
		},
		whenCall: "Call emergency services immediately for any suspected heart attack.",
	},
	{
		category: "power-outage",
		keywords: []string{"power outage", "blackout", "power cut", "electricity out", "no power"},
		steps: []templateStep{
			{"Use safe lighting", "Use battery torches or lamps instead of candles where possible to reduce fire risk.", ""},
			{"Protect food", "Keep fridge and freezer doors closed. A full freezer keeps food safe for about 48 hours unopened.", ""},
			{"Avoid carbon monoxide", "Never run generators, grills, or camp stoves indoors or in a garage.", "Carbon monoxide is odorless and can be fatal."},
			{"Check on others", "Check on neighbours who rely on powered medical equipment, and on older or isolated people.", ""},
		},
		whenCall: "Call emergency services if someone depends on powered life-support equipment that has failed.",
	},
}

// genericTemplate answers queries no category matches.
var genericTemplate = emergencyTemplate{
	category: "generic",
	steps: []templateStep{
		{"Assess the scene", "Make sure the area is safe for you before approaching. Remove or avoid any ongoing danger.", ""},
		{"Check the person", "Check responsiveness and breathing. Note any visible injuries.", ""},
		{"Get help", "Call your local emergency services for any serious or uncertain situation, and follow their instructions.", ""},
		{"Provide comfort", "Keep the person warm, still, and reassured until help arrives.", ""},
	},
	whenCall: "When in doubt, call your local emergency services.",
}

// matchTemplate picks the first category whose keyword appears in the
// query, or the generic template.
func matchTemplate(query string) emergencyTemplate {
	lower := strings.ToLower(query)
	for _, tmpl := range emergencyTemplates {
		for _, kw := range tmpl.keywords {
			if strings.Contains(lower, kw) {
				return tmpl
			}
		}
	}
	return genericTemplate
}

// templateResponse renders a canned checklist for the query. Citations come
// exclusively from hits — real retrieved locations — cycled across steps.
// With no hits, steps are served uncited rather than with invented sources.
func templateResponse(query string, hits []domain.SearchHit) *domain.ChecklistResponse {
	tmpl := matchTemplate(query)

	steps := make([]domain.ChecklistStep, len(tmpl.steps))
	for i, ts := range tmpl.steps {
		step := domain.ChecklistStep{
			Title:   ts.title,
			Action:  ts.action,
			Caution: ts.caution,
		}
		if len(hits) > 0 {
			hit := hits[i%len(hits)]
			step.Source = domain.NewCitation(hit.DocID, hit.Location.StartOffset, hit.Location.EndOffset)
		}
		steps[i] = step
	}

	return &domain.ChecklistResponse{
		Checklist: steps,
		Meta: domain.Meta{
			Disclaimer:          domain.DefaultDisclaimer,
			WhenToCallEmergency: tmpl.whenCall,
			Extra:               map[string]any{"template_category": tmpl.category},
		},
	}
}
